package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/journey-sms-activity/internal/activity"
	"github.com/example/journey-sms-activity/internal/events"
	"github.com/example/journey-sms-activity/internal/provider"
	"github.com/example/journey-sms-activity/internal/sanitize"
	"github.com/example/journey-sms-activity/internal/statictest"
)

// defaultInstanceKey keys stored configurations when Journey Builder omits
// the definition instance id.
const defaultInstanceKey = "default"

func (s *Server) handleLifecycleProbe(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": route + " endpoint healthy",
		})
	}
}

func (s *Server) handleSave(c *gin.Context) {
	body, ok := s.bindBody(c)
	if !ok {
		return
	}
	s.applyStaticData(c, body, statictest.LifecycleDefaults())

	args, err := activity.ParseExecuteRequest(body)
	if err != nil {
		s.respondError(c, err)
		return
	}

	key := instanceKey(body)
	s.store.Save(key, StoredConfig{Arguments: args.Raw, SavedAt: time.Now()})

	log := requestLogger(c)
	log.Info().
		Str("instance", key).
		Interface("arguments", sanitize.Object(args.Raw)).
		Msg("activity configuration saved")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "configuration saved"})
}

func (s *Server) handleValidate(c *gin.Context) {
	body, ok := s.bindBody(c)
	if !ok {
		return
	}
	s.applyStaticData(c, body, statictest.LifecycleDefaults())

	if _, err := activity.ParseExecuteRequest(body); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "configuration valid"})
}

func (s *Server) handlePublish(c *gin.Context) {
	body, ok := s.bindBody(c)
	if !ok {
		return
	}

	key := instanceKey(body)
	stored, found := s.store.Get(key)
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "invalid",
			"message": "activity has not been saved",
			"details": []string{"no saved configuration found for this activity instance"},
		})
		return
	}

	// Re-validate what was saved, not the publish body.
	replay := map[string]any{"inArguments": []any{stored.Arguments}}
	if _, err := activity.ParseExecuteRequest(replay); err != nil {
		s.respondError(c, err)
		return
	}

	log := requestLogger(c)
	log.Info().Str("instance", key).Msg("activity published")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "activity published"})
}

func (s *Server) handleStop(c *gin.Context) {
	log := requestLogger(c)
	log.Info().Msg("activity stopped")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "activity stopped"})
}

func (s *Server) handleExecute(c *gin.Context) {
	body, ok := s.bindBody(c)
	if !ok {
		return
	}
	s.applyStaticData(c, body, statictest.ExecuteDefaults())

	correlationID := requestCorrelationID(c)
	log := requestLogger(c)

	args, err := activity.ParseExecuteRequest(body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := activity.CheckUnresolvedTokens(args); err != nil {
		s.respondError(c, err)
		return
	}

	reqCtx := activity.ContextFromBody(body)
	payload, err := s.builder.Build(args, reqCtx)
	if err != nil {
		s.respondError(c, err)
		return
	}

	log.Info().
		Str("transaction_id", payload.TransactionID).
		Interface("arguments", sanitize.Object(args.Raw)).
		Msg("executing activity for contact")

	s.publisher.TryPublish(c.Request.Context(), events.StatusEvent{
		Type:          events.TypeAccepted,
		CorrelationID: correlationID,
		TransactionID: payload.TransactionID,
		Recipient:     args.RecipientTo,
	})

	// The retry loop runs to completion even if Journey Builder drops the
	// connection, so the delivery context is detached from the request.
	sendCtx := context.WithoutCancel(c.Request.Context())
	resp, err := s.client.Send(sendCtx, payload, provider.SendOptions{CorrelationID: correlationID})
	if err != nil {
		s.publisher.TryPublish(sendCtx, events.StatusEvent{
			Type:          events.TypeFailed,
			CorrelationID: correlationID,
			TransactionID: payload.TransactionID,
			Recipient:     args.RecipientTo,
			Error:         err.Error(),
		})
		s.respondError(c, err)
		return
	}

	s.publisher.TryPublish(sendCtx, events.StatusEvent{
		Type:           events.TypeSent,
		CorrelationID:  correlationID,
		TransactionID:  payload.TransactionID,
		Recipient:      args.RecipientTo,
		ProviderStatus: resp.Status,
	})

	result := gin.H{
		"status":         "ok",
		"providerStatus": resp.Status,
	}
	if len(resp.Body) > 0 {
		result["providerResponse"] = resp.Body
	}
	if resp.Stubbed {
		result["stubbed"] = true
		result["echoedPayload"] = resp.Echo
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) bindBody(c *gin.Context) (map[string]any, bool) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "invalid",
			"message": "request body must be a JSON object",
			"details": []string{err.Error()},
		})
		return nil, false
	}
	return body, true
}

func (s *Server) applyStaticData(c *gin.Context, body map[string]any, defaults map[string]any) {
	requested := statictest.Requested(
		c.GetHeader(statictest.HeaderFlag),
		c.Query(statictest.BodyFlag),
		body,
		s.staticAll,
	)
	if !requested {
		return
	}
	if statictest.Apply(body, defaults) {
		log := requestLogger(c)
		log.Info().Msg("static test data applied to request")
	}
}

// respondError maps internal error kinds onto the HTTP surface. Failure
// bodies carry field-level details for validation errors and a terse
// summary for provider errors; raw provider bodies and recipient addresses
// stay in the sanitized logs only.
func (s *Server) respondError(c *gin.Context, err error) {
	var validationErr *activity.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "invalid",
			"message": validationErr.Message,
			"details": validationErr.Details,
		})
		return
	}

	if reqErr, ok := provider.AsRequestError(err); ok {
		log := requestLogger(c)
		log.Error().
			Int("provider_status", reqErr.Details.Status).
			Str("provider_message", reqErr.Details.Message).
			Interface("provider_body", sanitize.Value("responseBody", reqErr.Details.ResponseBody)).
			Msg("provider delivery failed")
		c.JSON(reqErr.HTTPStatus(), gin.H{
			"status":  "provider_error",
			"message": reqErr.Message,
			"details": gin.H{
				"status":  reqErr.Details.Status,
				"message": reqErr.Details.Message,
			},
		})
		return
	}

	log := requestLogger(c)
	log.Error().Err(err).Msg("unhandled error while processing request")
	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"message": "internal server error",
	})
}

func instanceKey(body map[string]any) string {
	for _, key := range []string{"definitionInstanceId", "activityInstanceId", "activityId"} {
		if value, ok := body[key].(string); ok && value != "" {
			return value
		}
	}
	return defaultInstanceKey
}
