package indirectx

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateNodeConfig, NodeConfig{})
	v.RegisterStructValidation(validateHostConfig, HostConfig{})
	return v
}

// validateNodeConfig holds the rules that span several fields of a node.
func validateNodeConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(NodeConfig)

	if !cfg.Identifier.IsValid() {
		sl.ReportError(cfg.Identifier, "Identifier", "Identifier", "identifier", "")
	}

	switch cfg.Kind {
	case KindScope:
		if cfg.Factory != nil {
			sl.ReportError(cfg.Factory, "Factory", "Factory", "scope_factory", "")
		}
		if cfg.ScopeBinding != Registration {
			sl.ReportError(cfg.ScopeBinding, "ScopeBinding", "ScopeBinding", "scope_binding", "")
		}
	case KindSingleton, KindTransient:
		if cfg.Factory == nil {
			sl.ReportError(cfg.Factory, "Factory", "Factory", "factory", "")
		}
	}

	if cfg.Immediate && (cfg.Kind != KindSingleton || cfg.ScopeBinding != Registration) {
		sl.ReportError(cfg.Immediate, "Immediate", "Immediate", "immediate", "")
	}

	reportDuplicates(sl, cfg.Nodes)
}

func validateHostConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(HostConfig)
	reportDuplicates(sl, cfg.Nodes)
}

// reportDuplicates flags siblings that provide the same contract. Siblings
// with equal identifiers could never be told apart by a resolution.
func reportDuplicates(sl validator.StructLevel, nodes []NodeConfig) {
	seen := map[Identifier]bool{}
	for _, n := range nodes {
		if !n.Identifier.IsValid() {
			continue
		}
		if seen[n.Identifier] {
			sl.ReportError(nodes, "Nodes", "Nodes", "duplicate", n.Identifier.String())
		}
		seen[n.Identifier] = true
	}
}

var problemMessages = map[string]string{
	"oneof":         "unknown provider kind",
	"min":           "scope binding out of range",
	"max":           "scope binding out of range",
	"identifier":    "identifier has no type",
	"scope_factory": "scope nodes cannot have a factory",
	"scope_binding": "scope nodes only support registration binding",
	"factory":       "factory is required for singleton and transient nodes",
	"immediate":     "only registration-bound singletons can be immediate",
	"duplicate":     "duplicate sibling identifier",
}

// validateConfig runs the build-time checks on a host configuration and
// folds every failure into one ConfigError.
func validateConfig(cfg HostConfig) error {
	err := configValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return &ConfigError{Problems: []string{err.Error()}}
	}

	result := &ConfigError{}
	for _, fe := range validationErrors {
		message, ok := problemMessages[fe.Tag()]
		if !ok {
			message = fe.Tag()
		}
		if fe.Param() != "" && fe.Tag() == "duplicate" {
			message = fmt.Sprintf("%s %s", message, fe.Param())
		}
		result.Problems = append(result.Problems, fmt.Sprintf("%s: %s", fe.Namespace(), message))
	}
	return result
}
