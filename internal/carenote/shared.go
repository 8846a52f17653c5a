package carenote

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ameistad/carenote/internal/apiclient"
	"github.com/ameistad/carenote/internal/config"
	"github.com/ameistad/carenote/internal/ui"
)

const (
	defaultRequestTimeout = 2 * time.Minute
	apiTokenLength        = 32 // bytes, results in 64 character hex string
)

// newAPIClient resolves the target server from the --server flag, the environment and the client config.
func newAPIClient(flags *globalFlags) (*apiclient.APIClient, error) {
	path, err := config.ClientConfigFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine client config path: %w", err)
	}
	clientConfig, err := config.LoadClientConfig(path)
	if err != nil {
		return nil, err
	}
	url, token := clientConfig.Resolve(flags.server)
	return apiclient.New(url, token)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, apiTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(ui.Output)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, arg)
	}
	return id, nil
}

// orDash keeps empty table cells visible.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// truncate shortens s to at most limit runes for table cells.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return orDash(s)
	}
	return string(runes[:limit-1]) + "…"
}
