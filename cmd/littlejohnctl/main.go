package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) get(path string) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	resp, err := c.HTTP.Get(url)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		baseURL = envOr("LITTLEJOHN_URL", "http://localhost:8080")
		out     = envOr("LITTLEJOHN_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "littlejohnctl",
		Short: "CLI de operaciones para littlejohn",
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del servicio (env LITTLEJOHN_URL)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{BaseURL: baseURL, OutFormat: out, HTTP: &http.Client{Timeout: 30 * time.Second}}

	// grupo keys
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Operaciones sobre la clave de firma publicada",
	}

	keysShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Mostrar el JWKS publicado (404 si no hay clave cacheada)",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.get("/.well-known/jwks.json")
			if err != nil {
				return err
			}
			if status == http.StatusNotFound {
				return fmt.Errorf("no hay clave publicada (status=404)")
			}
			if status/100 != 2 {
				return fmt.Errorf("jwks fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	keysCmd.AddCommand(keysShowCmd)

	// health
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Chequear liveness y readiness del servicio",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range []string{"/healthz", "/readyz"} {
				status, body, err := cl.get(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if status/100 != 2 {
					return fmt.Errorf("%s: status=%d body=%s", path, status, string(body))
				}
				fmt.Printf("%s: %s\n", path, strings.TrimSpace(string(body)))
			}
			return nil
		},
	}

	// grupo token
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Utilidades sobre tokens emitidos",
	}

	tokenInspectCmd := &cobra.Command{
		Use:   "inspect <jwt>",
		Short: "Decodificar header y claims de un token (sin verificar firma)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts := strings.Split(args[0], ".")
			if len(parts) != 3 {
				return fmt.Errorf("token malformado: se esperan 3 segmentos")
			}
			for _, seg := range []struct {
				name string
				raw  string
			}{{"header", parts[0]}, {"claims", parts[1]}} {
				b, err := base64.RawURLEncoding.DecodeString(seg.raw)
				if err != nil {
					return fmt.Errorf("decodificando %s: %w", seg.name, err)
				}
				var v any
				if err := json.Unmarshal(b, &v); err != nil {
					return fmt.Errorf("parseando %s: %w", seg.name, err)
				}
				p, _ := json.MarshalIndent(v, "", "  ")
				fmt.Printf("%s:\n%s\n", seg.name, string(p))
			}
			return nil
		},
	}
	tokenCmd.AddCommand(tokenInspectCmd)

	root.AddCommand(keysCmd, healthCmd, tokenCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
