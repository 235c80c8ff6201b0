package config

import "fmt"

// Validator validates a loaded Config comprehensively, with clear
// field-scoped error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll validates engine, directory, store, and telemetry settings in
// turn, failing fast at the first error.
func (v *Validator) ValidateAll() error {
	if err := v.validateEngine(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := v.validateDirectory(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := v.validateStore(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := v.validateTelemetry(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}

func (v *Validator) validateEngine() error {
	if v.cfg.Engine.SnapshotEvery < 0 {
		return fieldErr("engine.snapshot_every", fmt.Errorf("must be >= 0, got %d", v.cfg.Engine.SnapshotEvery))
	}
	if v.cfg.Engine.MethodTimeout < 0 {
		return fieldErr("engine.method_timeout", fmt.Errorf("must be >= 0, got %s", v.cfg.Engine.MethodTimeout))
	}
	return nil
}

func (v *Validator) validateDirectory() error {
	d := v.cfg.Directory
	if d.RemoteAddr == "" && len(d.StaticEndpoints) == 0 {
		return fieldErr("directory", fmt.Errorf("at least one of remote_addr or static_endpoints is required"))
	}
	if d.CacheTTL < 0 {
		return fieldErr("directory.cache_ttl", fmt.Errorf("must be >= 0, got %s", d.CacheTTL))
	}
	if d.RefreshQPS < 0 {
		return fieldErr("directory.refresh_qps", fmt.Errorf("must be >= 0, got %v", d.RefreshQPS))
	}
	return nil
}

func (v *Validator) validateStore() error {
	s := v.cfg.Store
	if s.MongoURI == "" {
		return nil
	}
	if s.Database == "" {
		return fieldErr("store.database", fmt.Errorf("required when mongo_uri is set"))
	}
	if s.Collection == "" {
		return fieldErr("store.collection", fmt.Errorf("required when mongo_uri is set"))
	}
	return nil
}

func (v *Validator) validateTelemetry() error {
	switch v.cfg.Telemetry.Format {
	case "", "text", "json":
		return nil
	default:
		return fieldErr("telemetry.format", fmt.Errorf("must be \"text\" or \"json\", got %q", v.cfg.Telemetry.Format))
	}
}
