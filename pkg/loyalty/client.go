package loyalty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"loyalty-connector/pkg/errutil"
	"loyalty-connector/pkg/metrics"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Gateway is the only way out to the loyalty service.
type Gateway interface {
	SendEvent(ctx context.Context, event Event) (*EventResponse, error)
	GetCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	GetCustomerByRemoteID(ctx context.Context, id string) (*Customer, error)
	CreateCustomer(ctx context.Context, fields CustomerFields) (*Customer, error)
	GetRedemptionOptions(ctx context.Context, customerID string) ([]RedemptionOption, error)
	CreateRedemption(ctx context.Context, customerID string, pointsAmount int64, optionID string) (*Transaction, error)
}

const (
	AuthBasic  = "basic"
	AuthBearer = "bearer"

	maxErrorBody = 256
)

type Config struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	AuthScheme string
	Timeout    time.Duration
	RetryCount int
	Transport  http.RoundTripper
}

type Client struct {
	http   *resty.Client
	tracer trace.Tracer
}

var _ Gateway = (*Client)(nil)

func NewClient(cfg Config) *Client {
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTransport(otelhttp.NewTransport(transport)).
		SetTimeout(timeout).
		SetLogger(restyLogger{}).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		// Only reads are retried; a retried POST could double-submit an event or a debit.
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	switch cfg.AuthScheme {
	case AuthBearer:
		rc.SetAuthToken(cfg.APIKey)
	default:
		rc.SetBasicAuth(cfg.APIKey, cfg.APISecret)
	}

	return &Client{
		http:   rc,
		tracer: otel.Tracer("loyalty.gateway"),
	}
}

// restyLogger sends resty's own messages through the global zap logger.
type restyLogger struct{}

func (restyLogger) sugar() *zap.SugaredLogger {
	return zap.L().Named("resty").Sugar()
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.sugar().Errorf(strings.TrimSpace(format), v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.sugar().Warnf(strings.TrimSpace(format), v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.sugar().Debugf(strings.TrimSpace(format), v...)
}

func (c *Client) SendEvent(ctx context.Context, event Event) (*EventResponse, error) {
	payload, err := buildEventPayload(event)
	if err != nil {
		return nil, err
	}

	var out EventResponse
	err = c.do(ctx, "send_event", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(payload).Post("/events")
	}, &out, false)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func buildEventPayload(event Event) (*eventPayload, error) {
	if strings.TrimSpace(event.EventType.String()) == "" {
		return nil, errutil.Validation("event type is required")
	}

	hasRecord := event.Customer != nil && !event.Customer.IsZero()
	if !hasRecord && event.CustomerID == "" {
		return nil, errutil.Validation("customer is required")
	}

	payload := &eventPayload{
		EventType:  event.EventType,
		Data:       Normalize(event.Data),
		ExternalID: event.ExternalID,
		Sources:    compactSources(event.Sources),
	}

	// exactly one of customer_id and customer goes out; a known id wins
	if event.CustomerID != "" {
		payload.CustomerID = event.CustomerID
	} else {
		payload.Customer = event.Customer
	}

	return payload, nil
}

func compactSources(sources []string) []string {
	var out []string
	for _, s := range sources {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Client) GetCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errutil.Validation("email is required")
	}
	return c.getCustomer(ctx, "get_customer_by_email", email)
}

func (c *Client) GetCustomerByRemoteID(ctx context.Context, id string) (*Customer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errutil.Validation("remote customer id is required")
	}
	return c.getCustomer(ctx, "get_customer_by_remote_id", id)
}

func (c *Client) getCustomer(ctx context.Context, operation, identifier string) (*Customer, error) {
	var out Customer
	err := c.do(ctx, operation, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("identifier", identifier).Get("/customers/{identifier}")
	}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCustomer(ctx context.Context, fields CustomerFields) (*Customer, error) {
	if fields.Email == "" && fields.ExternalID == "" {
		return nil, errutil.Validation("customer email or external id is required")
	}

	var out Customer
	err := c.do(ctx, "create_customer", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(fields).Post("/customers/")
	}, &out, false)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRedemptionOptions(ctx context.Context, customerID string) ([]RedemptionOption, error) {
	var raw json.RawMessage
	err := c.do(ctx, "get_redemption_options", func(r *resty.Request) (*resty.Response, error) {
		if customerID != "" {
			r.SetQueryParam("customer_id", customerID)
		}
		return r.Get("/redemption_options")
	}, &raw, false)
	if err != nil {
		return nil, err
	}
	return decodeOptions(raw)
}

// decodeOptions accepts {"_contents": [...]} and a bare array.
func decodeOptions(raw json.RawMessage) ([]RedemptionOption, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []RedemptionOption
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, errutil.Server("invalid redemption options response", http.StatusOK, errutil.WithErr(err))
		}
		return list, nil
	}

	var wrapped redemptionOptionList
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, errutil.Server("invalid redemption options response", http.StatusOK, errutil.WithErr(err))
	}
	return wrapped.Contents, nil
}

func (c *Client) CreateRedemption(ctx context.Context, customerID string, pointsAmount int64, optionID string) (*Transaction, error) {
	if customerID == "" || optionID == "" {
		return nil, errutil.Validation("customer id and redemption option id are required")
	}
	if pointsAmount <= 0 {
		return nil, errutil.Validation("points amount must be positive")
	}

	var out Transaction
	err := c.do(ctx, "create_redemption", func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetPathParam("id", customerID).
			SetBody(redemptionPayload{PointsAmount: pointsAmount, RedemptionOptionID: optionID}).
			Post("/customers/{id}/redemptions")
	}, &out, false)
	if err != nil {
		return nil, err
	}

	if out.PointsChange == nil {
		delta := Points(-pointsAmount)
		out.PointsChange = &delta
	}
	return &out, nil
}

// do executes one request, maps the outcome to the error taxonomy and decodes the body into out.
func (c *Client) do(ctx context.Context, operation string, send func(*resty.Request) (*resty.Response, error), out any, notFoundIsMissing bool) (err error) {
	ctx, span := c.tracer.Start(ctx, "loyalty."+operation)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ObserveGatewayRequest(operation, outcome(err), time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	zapLog := zap.L().With(zap.String("operation", operation))

	resp, err := send(c.http.R().SetContext(ctx))
	if err != nil {
		zapLog.Error("loyalty request failed", zap.Error(err))
		return errutil.Transport("loyalty service unreachable", err)
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		zapLog.Error("loyalty service rejected credentials", zap.Int("status", status))
		return errutil.Transport("loyalty service authentication failed", fmt.Errorf("status %d", status), errutil.WithRemoteStatus(status))
	case status == http.StatusNotFound && notFoundIsMissing:
		return errutil.NotFound("customer not found", nil, errutil.WithRemoteStatus(status))
	case !resp.IsSuccess():
		body := excerpt(resp.Body())
		zapLog.Error("loyalty service returned an error", zap.Int("status", status), zap.String("body", body))
		return errutil.Server(fmt.Sprintf("loyalty service returned %d", status), status, errutil.WithErr(errors.New(body)))
	}

	if len(strings.TrimSpace(string(resp.Body()))) == 0 || out == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		zapLog.Error("failed to decode loyalty response", zap.Error(err))
		return errutil.Server("invalid loyalty service response", status, errutil.WithErr(err))
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errutil.IsNotFound(err):
		return "not_found"
	case errutil.IsTransport(err):
		return "transport_error"
	case errutil.IsValidation(err):
		return "validation_error"
	default:
		return "server_error"
	}
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
