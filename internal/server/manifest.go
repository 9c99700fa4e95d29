package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// handleManifest serves the activity manifest Journey Builder fetches when
// the canvas loads. The endpoint URLs are derived from the configured base
// URL, falling back to the forwarded request host.
func (s *Server) handleManifest(c *gin.Context) {
	baseURL := s.resolveBaseURL(c)

	c.JSON(http.StatusOK, gin.H{
		"workflowApiVersion": "1.1",
		"metaData": gin.H{
			"icon":      baseURL + "/images/iconSmall.svg",
			"iconSmall": baseURL + "/images/iconSmall.svg",
			"category":  "message",
		},
		"type": "REST",
		"lang": gin.H{
			"en-US": gin.H{
				"name":        "Custom SMS Activity",
				"description": "Configures and triggers the DIGO SMS send API with validated payloads.",
			},
		},
		"arguments": gin.H{
			"execute": gin.H{
				"inArguments":        []any{},
				"outArguments":       []any{},
				"timeout":            10000,
				"retryCount":         5,
				"retryDelay":         1000,
				"concurrentRequests": 5,
				"url":                baseURL + "/execute",
			},
		},
		"configurationArguments": gin.H{
			"save":     gin.H{"url": baseURL + "/save"},
			"publish":  gin.H{"url": baseURL + "/publish"},
			"validate": gin.H{"url": baseURL + "/validate"},
			"stop":     gin.H{"url": baseURL + "/stop"},
		},
		"schema": gin.H{
			"arguments": gin.H{
				"execute": gin.H{
					"inArguments": []any{
						gin.H{
							"message": gin.H{
								"dataType":   "Text",
								"isNullable": "False",
								"direction":  "in",
								"access":     "visible",
							},
							"mobilePhoneAttribute": gin.H{
								"dataType":   "Text",
								"isNullable": "False",
								"direction":  "in",
								"access":     "visible",
							},
						},
					},
					"outArguments": []any{},
				},
			},
		},
	})
}

func (s *Server) resolveBaseURL(c *gin.Context) string {
	if s.baseURL != "" {
		return s.baseURL
	}

	proto := firstHeaderValue(c, "X-Forwarded-Proto")
	if proto == "" {
		proto = "https"
	}
	host := firstHeaderValue(c, "X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	return proto + "://" + host
}

func firstHeaderValue(c *gin.Context, name string) string {
	value := c.GetHeader(name)
	if value == "" {
		return ""
	}
	return strings.TrimSpace(strings.Split(value, ",")[0])
}
