package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PrintJSON writes data as indented JSON.
func PrintJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintYAML writes data as YAML with two-space indentation.
func PrintYAML(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(data)
}

// EnvRenderer is implemented by results that map to environment variables.
type EnvRenderer interface {
	Env() map[string]string
}

// PrintEnv writes env as sorted, quoted dotenv lines.
func PrintEnv(w io.Writer, env map[string]string) error {
	if len(env) == 0 {
		return nil
	}
	content, err := godotenv.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode env: %w", err)
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	_, err = io.WriteString(w, content)
	return err
}
