// ABOUTME: Operator CLI for partner connection management
// ABOUTME: Talks HTTP to the gateway admin API with JWT authentication

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/user"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/keyhaus/partner-gateway/internal/auth"
	"github.com/keyhaus/partner-gateway/internal/config"
	"github.com/keyhaus/partner-gateway/internal/store"
)

const banner = `
                   _                            _           _
 _ __   __ _ _ __| |_ _ __   ___ _ __ ___  __ _| |_ __ ___ (_)_ __
| '_ \ / _' | '__| __| '_ \ / _ \ '__/ _ \/ _' | | '_ ' _ \| | '_ \
| |_) | (_| | |  | |_| | | |  __/ | |  __/ (_| | | | | | | | | | | |
| .__/ \__,_|_|   \__|_| |_|\___|_|  \___|\__,_|_|_| |_| |_|_|_| |_|
|_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("PARTNER_GATEWAY_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	baseURL = strings.TrimRight(baseURL, "/")
	token := os.Getenv("PARTNER_ADMIN_TOKEN")

	cmd := os.Args[1]
	args := os.Args[2:]

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	switch cmd {
	case "connections":
		err = cmdConnections(ctx, baseURL, token, args)
	case "token":
		err = cmdToken(ctx, args)
	case "audit":
		err = cmdAudit(ctx, baseURL, token)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: partner-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  connections                 List partner connections")
	fmt.Println("  connections list            List partner connections")
	fmt.Println("  connections create          Provision a new connection")
	fmt.Println("  connections revoke <id>     Revoke a connection")
	fmt.Println("  connections delete <id>     Delete a connection")
	fmt.Println("  token create                Mint an operator JWT (reads local config)")
	fmt.Println("  audit                       Show recent audit entries")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  PARTNER_GATEWAY_URL     Gateway base URL (default: http://localhost:8080)")
	fmt.Println("  PARTNER_ADMIN_TOKEN     Operator JWT (required for remote commands)")
	fmt.Println("  PARTNER_GATEWAY_CONFIG  Config path used by 'token create'")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  partner-admin token create --ttl 8h")
	fmt.Println("  export PARTNER_ADMIN_TOKEN=\"eyJhbG...\"")
	fmt.Println("  partner-admin connections create --integration partner_b --api-key KEY --team-id T1")
	fmt.Println("  partner-admin connections revoke 4f7c...")
	fmt.Println()
}

// doJSON performs an authenticated request against the admin API and decodes
// the JSON response into out (when out is non-nil).
func doJSON(ctx context.Context, method, url, token string, body, out any) error {
	if token == "" {
		return fmt.Errorf("PARTNER_ADMIN_TOKEN is not set; run 'partner-admin token create' on the gateway host")
	}

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, buf)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

type connection struct {
	ID                string `json:"id"`
	Integration       string `json:"integration"`
	IntegrationUserID string `json:"integrationUserId"`
	APIKey            string `json:"apiKey"`
	TeamID            string `json:"teamId"`
	BrokerID          string `json:"brokerId"`
	ShopID            string `json:"shopId"`
	Email             string `json:"email"`
	Status            string `json:"status"`
	CreatedAt         string `json:"createdAt"`
}

func cmdConnections(ctx context.Context, baseURL, token string, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		return connectionsList(ctx, baseURL, token)
	case "create":
		return connectionsCreate(ctx, baseURL, token, args)
	case "revoke":
		if len(args) != 1 {
			return fmt.Errorf("usage: connections revoke <id>")
		}
		if err := doJSON(ctx, http.MethodPost, baseURL+"/admin/connections/"+args[0]+"/revoke", token, nil, nil); err != nil {
			return err
		}
		color.Green("✓ Connection %s revoked\n", args[0])
		return nil
	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("usage: connections delete <id>")
		}
		if err := doJSON(ctx, http.MethodDelete, baseURL+"/admin/connections/"+args[0], token, nil, nil); err != nil {
			return err
		}
		color.Green("✓ Connection %s deleted\n", args[0])
		return nil
	default:
		return fmt.Errorf("unknown connections subcommand: %s", sub)
	}
}

func connectionsList(ctx context.Context, baseURL, token string) error {
	var resp struct {
		Connections []connection `json:"connections"`
	}
	if err := doJSON(ctx, http.MethodGet, baseURL+"/admin/connections", token, nil, &resp); err != nil {
		return err
	}

	if len(resp.Connections) == 0 {
		fmt.Println("No connections.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tINTEGRATION\tUSER\tTEAM\tSTATUS\tCREATED")
	for _, c := range resp.Connections {
		status := c.Status
		if status == "revoked" {
			status = color.RedString(status)
		} else {
			status = color.GreenString(status)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Integration, c.IntegrationUserID, c.TeamID, status, c.CreatedAt)
	}
	return w.Flush()
}

func connectionsCreate(ctx context.Context, baseURL, token string, args []string) error {
	flags, err := parseFlags(args, "integration", "api-key", "user-id", "team-id", "broker-id", "shop-id", "email")
	if err != nil {
		return err
	}
	if flags["integration"] == "" || flags["api-key"] == "" {
		return fmt.Errorf("--integration and --api-key are required")
	}

	var created connection
	err = doJSON(ctx, http.MethodPost, baseURL+"/admin/connections", token, map[string]string{
		"integration":       flags["integration"],
		"integrationUserId": flags["user-id"],
		"apiKey":            flags["api-key"],
		"teamId":            flags["team-id"],
		"brokerId":          flags["broker-id"],
		"shopId":            flags["shop-id"],
		"email":             flags["email"],
	}, &created)
	if err != nil {
		return err
	}

	color.Green("✓ Connection created\n")
	fmt.Printf("  ID:          %s\n", created.ID)
	fmt.Printf("  Integration: %s\n", created.Integration)
	fmt.Printf("  API key:     %s\n", created.APIKey)
	if created.TeamID != "" {
		fmt.Printf("  Team:        %s\n", created.TeamID)
	}
	return nil
}

// cmdToken mints an operator JWT from the local gateway config. This runs on
// the gateway host; remote operators receive the token out of band.
func cmdToken(ctx context.Context, args []string) error {
	if len(args) < 1 || args[0] != "create" {
		return fmt.Errorf("usage: token create [--subject NAME] [--ttl DURATION]")
	}
	flags, err := parseFlags(args[1:], "subject", "ttl")
	if err != nil {
		return err
	}

	subject := flags["subject"]
	if subject == "" {
		if u, err := user.Current(); err == nil {
			subject = u.Username
		} else {
			subject = "operator"
		}
	}

	ttl := 8 * time.Hour
	if flags["ttl"] != "" {
		ttl, err = time.ParseDuration(flags["ttl"])
		if err != nil {
			return fmt.Errorf("parsing --ttl: %w", err)
		}
	}

	configPath := os.Getenv("PARTNER_GATEWAY_CONFIG")
	if configPath == "" {
		return fmt.Errorf("PARTNER_GATEWAY_CONFIG must point at the gateway config")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Admin.JWTSecret == "" {
		return fmt.Errorf("admin.jwt_secret is not configured")
	}

	verifier := auth.NewAdminTokenVerifier([]byte(cfg.Admin.JWTSecret))
	token, err := verifier.Generate(subject, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	// Record the mint in the local audit log so token issuance is traceable.
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err == nil {
		_ = st.AppendAuditLog(ctx, &store.AuditEntry{
			Actor:      subject,
			Action:     store.AuditMintAdminToken,
			TargetType: "token",
			TargetID:   subject,
			Detail:     map[string]any{"ttl": ttl.String()},
		})
		st.Close()
	}

	color.Green("✓ Token minted for %s (expires in %s)\n", subject, ttl)
	fmt.Println()
	fmt.Println(token)
	fmt.Println()
	fmt.Println("  export PARTNER_ADMIN_TOKEN=\"" + token + "\"")
	return nil
}

func cmdAudit(ctx context.Context, baseURL, token string) error {
	var resp struct {
		Entries []struct {
			Actor     string `json:"actor"`
			Action    string `json:"action"`
			TargetID  string `json:"targetId"`
			Timestamp string `json:"timestamp"`
		} `json:"entries"`
	}
	if err := doJSON(ctx, http.MethodGet, baseURL+"/admin/audit", token, nil, &resp); err != nil {
		return err
	}

	if len(resp.Entries) == 0 {
		fmt.Println("No audit entries.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tACTOR\tACTION\tTARGET")
	for _, e := range resp.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp, e.Actor, e.Action, e.TargetID)
	}
	return w.Flush()
}

// parseFlags parses "--name value" and "--name=value" pairs from args,
// restricted to the allowed flag names.
func parseFlags(args []string, allowed ...string) (map[string]string, error) {
	ok := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		ok[name] = true
	}

	flags := make(map[string]string)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("unexpected argument: %s", arg)
		}
		name, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !found {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		if !ok[name] {
			return nil, fmt.Errorf("unknown flag: --%s", name)
		}
		flags[name] = value
	}
	return flags, nil
}
