package app

import (
	"errors"
	"reflect"
	"testing"

	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
)

func TestParseCommandGetWithParams(t *testing.T) {
	cmd, err := ParseCommand([]string{"GET", "/events", "country=US", "country=EU", "importance=high", "tag=a=b"})
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	want := apiclient.Params{
		"country":    []string{"US", "EU"},
		"importance": "high",
		"tag":        "a=b",
	}
	if cmd.Name != CmdGet || cmd.Endpoint != "/events" || !reflect.DeepEqual(cmd.Params, want) {
		t.Fatalf("unexpected command %#v", cmd)
	}
}

func TestParseCommandMutationBody(t *testing.T) {
	cmd, err := ParseCommand([]string{"patch", "/reservations/res-1/status", `{"status":"armed"}`})
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	body, ok := cmd.Body.(map[string]any)
	if !ok || body["status"] != "armed" {
		t.Fatalf("unexpected body %#v", cmd.Body)
	}

	cmd, err = ParseCommand([]string{"delete", "/accounts/acc-1"})
	if err != nil || cmd.Body != nil {
		t.Fatalf("delete without body: cmd=%#v err=%v", cmd, err)
	}
}

func TestParseCommandRejectsBadInput(t *testing.T) {
	cases := [][]string{
		nil,
		{"get"},
		{"get", "/x", "novalue"},
		{"post", "/x", "{not json"},
		{"login", "only-user"},
		{"logout", "extra"},
		{"fetch", "/x"},
	}
	for _, args := range cases {
		if _, err := ParseCommand(args); !errors.Is(err, ErrUsage) {
			t.Fatalf("ParseCommand(%q) = %v, want usage error", args, err)
		}
	}
}
