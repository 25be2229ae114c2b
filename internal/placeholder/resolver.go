// Package placeholder resolves ${...} references in tool-server
// configuration against environment variables and stored credentials.
//
// Two reference forms exist: ${NAME} resolves an environment variable or
// a well-known setup field, and ${file.json.field} resolves a field
// inside a locally stored credential file. Unresolved references resolve
// to an empty string rather than failing — remote servers report their
// own authentication errors, and a missing optional credential must not
// abort connection of the whole server set.
package placeholder

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/callistohq/callisto/internal/config"
)

// RefKind distinguishes the two parsed reference forms.
type RefKind int

const (
	// RefEnvVar is a plain ${NAME} reference.
	RefEnvVar RefKind = iota

	// RefCredentialField is a ${file.ext.field} reference into a stored
	// credential file.
	RefCredentialField
)

// Ref is a parsed placeholder reference.
type Ref struct {
	Kind RefKind

	// Name is the variable name for RefEnvVar.
	Name string

	// File and Field are set for RefCredentialField.
	File  string
	Field string
}

// ParseRef parses the inside of a ${...} token. References containing a
// dot after a file extension are credential-field lookups; everything
// else is an environment-style name.
func ParseRef(s string) Ref {
	// "gcp-saved-tokens.json.refresh_token" → file "gcp-saved-tokens.json",
	// field "refresh_token". The file part always carries the .json
	// extension, so split on the last dot.
	if i := strings.LastIndex(s, "."); i > 0 && strings.Contains(s[:i], ".") {
		return Ref{
			Kind:  RefCredentialField,
			File:  s[:i],
			Field: s[i+1:],
		}
	}
	return Ref{Kind: RefEnvVar, Name: s}
}

// String renders the reference in its source form, for diagnostics.
func (r Ref) String() string {
	if r.Kind == RefCredentialField {
		return fmt.Sprintf("${%s.%s}", r.File, r.Field)
	}
	return fmt.Sprintf("${%s}", r.Name)
}

// Resolver resolves parsed references to values. Implementations return
// ok=false when the reference is unknown; Substitute then uses "".
type Resolver interface {
	Resolve(ref Ref) (value string, ok bool)
}

// SetupResolver resolves references against the process environment, the
// setup config, and credential files stored under a data directory.
type SetupResolver struct {
	setup   *config.SetupConfig
	dataDir string
	logger  *slog.Logger
}

// NewSetupResolver creates the standard resolver used at connection time.
func NewSetupResolver(setup *config.SetupConfig, dataDir string, logger *slog.Logger) *SetupResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SetupResolver{
		setup:   setup,
		dataDir: dataDir,
		logger:  logger,
	}
}

// Resolve maps well-known names to setup config fields, falls back to
// the environment for other names, and reads credential files for
// dotted references.
func (r *SetupResolver) Resolve(ref Ref) (string, bool) {
	switch ref.Kind {
	case RefCredentialField:
		return r.resolveCredential(ref)
	default:
		return r.resolveName(ref.Name)
	}
}

func (r *SetupResolver) resolveName(name string) (string, bool) {
	if r.setup != nil {
		switch name {
		case "GOOGLE_CLIENT_ID":
			return r.setup.Google.ClientID, true
		case "GOOGLE_CLIENT_SECRET":
			return r.setup.Google.ClientSecret, true
		case "SLACK_BOT_TOKEN":
			return r.setup.Slack.BotToken, true
		case "SLACK_TEAM_ID":
			return r.setup.Slack.TeamID, true
		}
	}

	if v, ok := os.LookupEnv(name); ok {
		return v, true
	}
	return "", false
}

func (r *SetupResolver) resolveCredential(ref Ref) (string, bool) {
	// The Google refresh token is served from the setup config when
	// present; the saved-token file is the fallback for installations
	// that completed OAuth before setup finished.
	if ref.File == "gcp-saved-tokens.json" && ref.Field == "refresh_token" &&
		r.setup != nil && r.setup.Google.RefreshToken != "" {
		return r.setup.Google.RefreshToken, true
	}

	path := filepath.Join(r.dataDir, ref.File)
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Debug("credential file not readable", "ref", ref.String(), "error", err)
		return "", false
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		r.logger.Warn("credential file is not valid JSON", "file", path)
		return "", false
	}

	v, ok := fields[ref.Field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Substitute walks an arbitrary decoded-JSON value and replaces every
// string of the exact form "${...}" with its resolved value. Unresolved
// references become "" with a debug log. Maps and slices are rebuilt;
// other values pass through unchanged.
func Substitute(value any, resolver Resolver, logger *slog.Logger) any {
	if logger == nil {
		logger = slog.Default()
	}

	switch v := value.(type) {
	case string:
		if !strings.HasPrefix(v, "${") || !strings.HasSuffix(v, "}") {
			return v
		}
		ref := ParseRef(v[2 : len(v)-1])
		resolved, ok := resolver.Resolve(ref)
		if !ok {
			logger.Debug("unresolved placeholder, substituting empty string", "ref", ref.String())
			return ""
		}
		return resolved

	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Substitute(item, resolver, logger)
		}
		return out

	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Substitute(item, resolver, logger)
		}
		return out

	default:
		return value
	}
}
