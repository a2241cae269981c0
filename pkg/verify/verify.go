// Package verify checks provider credentials with throwaway clients and
// applies verified keys to the shared credentials.
package verify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/openai/openai-go/option"

	"outreach/internal/llmimpl/openaicompat"
	"outreach/pkg/config"
	"outreach/pkg/llm"
	"outreach/pkg/llm/middleware/circuit"
	"outreach/pkg/llm/middleware/metrics"
	"outreach/pkg/llmerrors"
	"outreach/pkg/logx"
)

// Kind is a provider whose credentials can be verified.
type Kind string

// Verifiable providers.
const (
	KindDeepSeek Kind = "deepseek"
	KindGroq     Kind = "groq"
)

// Status of a single check or of an aggregate.
type Status string

// Statuses.
const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusNotTested Status = "not_tested"
)

// Messages reported by the checks.
const (
	MsgConnectionOK       = "API connection successful"
	MsgKeyNotProvided     = "API key not provided"
	MsgNotConfigured      = "Not configured"
	MsgAtLeastOneWorking  = "At least one API is working"
	MsgAllFailed          = "All APIs failed"
	MsgAllFailedToConnect = "All APIs failed to connect"
	MsgNoKeysProvided     = "No API keys provided"
	MsgKeysUpdated        = "API keys updated successfully"
	MsgNoValidKeys        = "No valid API keys provided"
)

// CheckResult is the outcome of probing one provider.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Circuit string `json:"circuit,omitempty"` // breaker state of the chain's provider, health only
}

// OK reports whether the check passed.
func (r CheckResult) OK() bool {
	return r.Status == StatusSuccess
}

// APIs holds one check per verifiable provider.
type APIs struct {
	DeepSeek CheckResult `json:"deepseek"`
	Groq     CheckResult `json:"groq"`
}

// HealthResult reports the providers configured in the running process.
type HealthResult struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	APIs    APIs   `json:"apis"`
}

// KeyInput is a candidate set of credentials.
type KeyInput struct {
	DeepSeekKey  string `json:"deepseek_api_key"`
	DeepSeekBase string `json:"deepseek_api_base"`
	GroqKey      string `json:"groq_api_key"`
}

// VerifyResult reports candidate credentials.
type VerifyResult struct {
	DeepSeek CheckResult `json:"deepseek"`
	Groq     CheckResult `json:"groq"`
	Overall  CheckResult `json:"overall"`
}

// UpdateResult reports a key update.
type UpdateResult struct {
	Status       Status       `json:"status"`
	Message      string       `json:"message"`
	Verification VerifyResult `json:"verification"`
}

// CredentialStore persists credentials.
type CredentialStore interface {
	Upsert(entries ...config.Entry) error
}

// CircuitSource reports the breaker state the generation chain holds for a provider.
type CircuitSource interface {
	BreakerState(name string) (circuit.State, bool)
}

// Verifier probes credentials. Every probe builds its own client, so a
// verification never reads or changes the shared credentials.
type Verifier struct {
	creds    *config.Credentials
	store    CredentialStore
	recorder metrics.Recorder
	logger   *logx.Logger

	probeTimeout time.Duration
	groqBaseURL  string
	httpClient   *http.Client
	circuits     CircuitSource

	// updateMu makes persisting and applying one step, so the store and
	// the in-process credentials always end on the same update.
	updateMu sync.Mutex
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithProbeTimeout bounds each probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.probeTimeout = d }
}

// WithGroqBaseURL points Groq probes at another endpoint.
func WithGroqBaseURL(url string) Option {
	return func(v *Verifier) { v.groqBaseURL = url }
}

// WithHTTPClient sets the HTTP client for probes.
func WithHTTPClient(client *http.Client) Option {
	return func(v *Verifier) { v.httpClient = client }
}

// WithRecorder counts probes.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(v *Verifier) { v.recorder = recorder }
}

// WithCircuits adds the chain's breaker states to health results.
func WithCircuits(src CircuitSource) Option {
	return func(v *Verifier) { v.circuits = src }
}

// New creates a verifier. store may be nil when keys are never updated.
func New(creds *config.Credentials, store CredentialStore, opts ...Option) *Verifier {
	v := &Verifier{
		creds:        creds,
		store:        store,
		recorder:     metrics.Nop(),
		logger:       logx.NewLogger("verify"),
		probeTimeout: config.DefaultProbeTimeout,
		groqBaseURL:  openaicompat.GroqBaseURL,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify probes kind with credential. An empty credential is not tested.
func (v *Verifier) Verify(ctx context.Context, kind Kind, credential, base string) CheckResult {
	if credential == "" {
		return CheckResult{Status: StatusNotTested, Message: MsgKeyNotProvided}
	}

	cfg := llm.LLMConfig{APIKey: credential}
	switch kind {
	case KindDeepSeek:
		cfg.BaseURL = base
		if cfg.BaseURL == "" {
			cfg.BaseURL = config.DefaultDeepSeekBase
		}
		cfg.ModelName = openaicompat.DeepSeekModel
	case KindGroq:
		cfg.BaseURL = v.groqBaseURL
		cfg.ModelName = openaicompat.GroqModel
	default:
		return CheckResult{Status: StatusError, Message: fmt.Sprintf("unknown provider %q", kind)}
	}

	var opts []option.RequestOption
	if v.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(v.httpClient))
	}
	client := openaicompat.NewClient(cfg, opts...)

	if v.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.probeTimeout)
		defer cancel()
	}

	_, err := client.Complete(metrics.WithOperation(ctx, metrics.OperationProbe), llm.NewProbeRequest())
	result := probeResult(err)
	v.recorder.ObserveProbe(string(kind), string(result.Status))
	if err != nil {
		v.logger.Warn("probe of %s failed (%s): %v", kind, llmerrors.TypeOf(err), err)
	}
	return result
}

func probeResult(err error) CheckResult {
	if err == nil {
		return CheckResult{Status: StatusSuccess, Message: MsgConnectionOK}
	}
	description := llmerrors.Description(err)
	if llmerrors.IsAuthFailure(err) {
		return CheckResult{Status: StatusError, Message: "Authentication failed: " + description}
	}
	return CheckResult{Status: StatusError, Message: "API connection failed: " + description}
}

// Health probes the credentials currently in use. A provider without a key
// is reported as not configured.
func (v *Verifier) Health(ctx context.Context) HealthResult {
	snap := v.creds.Snapshot()

	apis := APIs{
		DeepSeek: CheckResult{Status: StatusError, Message: MsgNotConfigured},
		Groq:     CheckResult{Status: StatusError, Message: MsgNotConfigured},
	}
	if snap.DeepSeekKey != "" {
		apis.DeepSeek = v.Verify(ctx, KindDeepSeek, snap.DeepSeekKey, snap.DeepSeekBase)
	}
	if snap.GroqKey != "" {
		apis.Groq = v.Verify(ctx, KindGroq, snap.GroqKey, "")
	}

	v.annotateCircuit(&apis.DeepSeek, KindDeepSeek)
	v.annotateCircuit(&apis.Groq, KindGroq)

	if apis.DeepSeek.OK() || apis.Groq.OK() {
		return HealthResult{Status: StatusSuccess, Message: MsgAtLeastOneWorking, APIs: apis}
	}
	return HealthResult{Status: StatusError, Message: MsgAllFailed, APIs: apis}
}

func (v *Verifier) annotateCircuit(r *CheckResult, kind Kind) {
	if v.circuits == nil {
		return
	}
	if state, ok := v.circuits.BreakerState(string(kind)); ok {
		r.Circuit = state.String()
	}
}

// VerifyKeys probes candidate credentials without applying them.
func (v *Verifier) VerifyKeys(ctx context.Context, in KeyInput) VerifyResult {
	result := VerifyResult{
		DeepSeek: v.Verify(ctx, KindDeepSeek, in.DeepSeekKey, in.DeepSeekBase),
		Groq:     v.Verify(ctx, KindGroq, in.GroqKey, ""),
	}

	switch {
	case result.DeepSeek.OK() || result.Groq.OK():
		result.Overall = CheckResult{Status: StatusSuccess, Message: MsgAtLeastOneWorking}
	case in.DeepSeekKey != "" || in.GroqKey != "":
		result.Overall = CheckResult{Status: StatusError, Message: MsgAllFailedToConnect}
	default:
		result.Overall = CheckResult{Status: StatusError, Message: MsgNoKeysProvided}
	}
	return result
}

// UpdateKeys verifies in, persists the credentials that passed, and then
// makes them current. Credentials that failed are neither stored nor applied.
func (v *Verifier) UpdateKeys(ctx context.Context, in KeyInput) UpdateResult {
	verification := v.VerifyKeys(ctx, in)
	if !verification.Overall.OK() {
		return UpdateResult{Status: StatusError, Message: MsgNoValidKeys, Verification: verification}
	}

	base := in.DeepSeekBase
	if base == "" {
		base = config.DefaultDeepSeekBase
	}

	var entries []config.Entry
	if verification.DeepSeek.OK() {
		entries = append(entries,
			config.Entry{Key: config.EnvDeepSeekKey, Value: in.DeepSeekKey},
			config.Entry{Key: config.EnvDeepSeekBase, Value: base},
		)
	}
	if verification.Groq.OK() {
		entries = append(entries, config.Entry{Key: config.EnvGroqKey, Value: in.GroqKey})
	}

	v.updateMu.Lock()
	defer v.updateMu.Unlock()

	if v.store != nil {
		if err := v.store.Upsert(entries...); err != nil {
			v.logger.Error("failed to persist API keys: %v", err)
			return UpdateResult{
				Status:       StatusError,
				Message:      fmt.Sprintf("Failed to update API keys: %v", err),
				Verification: verification,
			}
		}
	}

	v.creds.Update(func(s *config.Snapshot) {
		if verification.DeepSeek.OK() {
			s.DeepSeekKey = in.DeepSeekKey
			s.DeepSeekBase = base
		}
		if verification.Groq.OK() {
			s.GroqKey = in.GroqKey
		}
	})

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	v.logger.Info("🔑 updated API keys: %v", keys)

	return UpdateResult{Status: StatusSuccess, Message: MsgKeysUpdated, Verification: verification}
}
