package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
)

// Command is a single CLI request against the API.
type Command struct {
	Name     string
	Endpoint string
	Params   apiclient.Params
	Body     any
	Args     []string
}

// Command names.
const (
	CmdGet    = "get"
	CmdPost   = "post"
	CmdPut    = "put"
	CmdPatch  = "patch"
	CmdDelete = "delete"
	CmdLogin  = "login"
	CmdLogout = "logout"
	CmdWatch  = "watch"
)

// ErrUsage marks malformed command lines.
var ErrUsage = errors.New("usage")

// ParseCommand parses positional CLI arguments:
//
//	get|watch <endpoint> [key=value ...]
//	post|put|patch <endpoint> [json-body]
//	delete <endpoint> [json-body]
//	login <username> <password>
//	logout
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, fmt.Errorf("%w: missing command", ErrUsage)
	}
	cmd := Command{Name: strings.ToLower(args[0])}
	rest := args[1:]

	switch cmd.Name {
	case CmdGet, CmdWatch:
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("%w: %s requires an endpoint", ErrUsage, cmd.Name)
		}
		cmd.Endpoint = rest[0]
		params, err := parseParams(rest[1:])
		if err != nil {
			return Command{}, err
		}
		cmd.Params = params
	case CmdPost, CmdPut, CmdPatch, CmdDelete:
		if len(rest) == 0 || len(rest) > 2 {
			return Command{}, fmt.Errorf("%w: %s requires an endpoint and an optional json body", ErrUsage, cmd.Name)
		}
		cmd.Endpoint = rest[0]
		if len(rest) == 2 {
			if err := json.Unmarshal([]byte(rest[1]), &cmd.Body); err != nil {
				return Command{}, fmt.Errorf("%w: invalid json body: %v", ErrUsage, err)
			}
		}
	case CmdLogin:
		if len(rest) != 2 {
			return Command{}, fmt.Errorf("%w: login requires a username and a password", ErrUsage)
		}
		cmd.Args = rest
	case CmdLogout:
		if len(rest) != 0 {
			return Command{}, fmt.Errorf("%w: logout takes no arguments", ErrUsage)
		}
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	return cmd, nil
}

// parseParams turns key=value pairs into Params. Repeated keys become lists.
func parseParams(pairs []string) (apiclient.Params, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := apiclient.Params{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: query parameter %q is not key=value", ErrUsage, pair)
		}
		switch cur := params[k].(type) {
		case nil:
			params[k] = v
		case string:
			params[k] = []string{cur, v}
		case []string:
			params[k] = append(cur, v)
		}
	}
	return params, nil
}

// Execute runs a request command and returns the response payload.
func (r *Runtime) Execute(ctx context.Context, cmd Command) (any, error) {
	c := r.client
	switch cmd.Name {
	case CmdGet:
		return c.Get(ctx, cmd.Endpoint, cmd.Params)
	case CmdPost:
		return c.Post(ctx, cmd.Endpoint, cmd.Body)
	case CmdPut:
		return c.Put(ctx, cmd.Endpoint, cmd.Body)
	case CmdPatch:
		return c.Patch(ctx, cmd.Endpoint, cmd.Body)
	case CmdDelete:
		return c.Delete(ctx, cmd.Endpoint, cmd.Body)
	case CmdLogin:
		if len(cmd.Args) != 2 {
			return nil, fmt.Errorf("%w: login requires a username and a password", ErrUsage)
		}
		return nil, r.Login(ctx, cmd.Args[0], cmd.Args[1])
	case CmdLogout:
		return nil, r.Logout(ctx)
	default:
		return nil, fmt.Errorf("%w: command %q cannot be executed directly", ErrUsage, cmd.Name)
	}
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token and stores it under the
// configured profile.
func (r *Runtime) Login(ctx context.Context, username, password string) error {
	resp, err := apiclient.Post[loginResponse](ctx, r.client, "/session",
		map[string]string{"username": username, "password": password},
		apiclient.Struct(func(l loginResponse) error {
			if l.Token == "" {
				return errors.New("token is empty")
			}
			return nil
		}).AllowUnknown(),
	)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := r.store.SaveToken(r.cfg.SessionProfile, resp.Token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	r.client.ClearCache()
	r.log.InfoObj("session stored", "session", map[string]any{
		"profile":  r.cfg.SessionProfile,
		"username": username,
	})
	return nil
}

// Logout revokes the stored token remotely and forgets it locally. A token
// the server no longer knows is still removed.
func (r *Runtime) Logout(ctx context.Context) error {
	_, found, err := r.store.Token(r.cfg.SessionProfile)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !found {
		return nil
	}

	if _, err := r.client.Delete(ctx, "/session", nil); err != nil && !apiclient.IsHTTPStatus(err, http.StatusUnauthorized) {
		return fmt.Errorf("logout: %w", err)
	}
	if err := r.store.DeleteToken(r.cfg.SessionProfile); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	r.client.ClearCache()
	r.log.InfoObj("session removed", "session", map[string]any{"profile": r.cfg.SessionProfile})
	return nil
}

// Watch polls a GET command every interval and hands each result to fn,
// running the cache janitor alongside. It returns when ctx is cancelled or
// fn returns an error.
func (r *Runtime) Watch(ctx context.Context, cmd Command, every time.Duration, fn func(any, error) error) error {
	if every <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", every)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	janitorDone := make(chan error, 1)
	go func() { janitorDone <- r.Janitor().Run(ctx) }()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := fn(r.client.Get(ctx, cmd.Endpoint, cmd.Params)); err != nil {
			cancel()
			<-janitorDone
			return err
		}
		select {
		case <-ctx.Done():
			return <-janitorDone
		case <-ticker.C:
		}
	}
}
