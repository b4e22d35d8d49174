package endpoint_test

import (
	"errors"
	"testing"

	"thepipe/internal/pipe/endpoint"
	"thepipe/internal/pipe/httppipe"
	"thepipe/internal/pipe/localpipe"
	"thepipe/internal/pipe/redispipe"
	"thepipe/internal/testsupport"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		id   string
		want endpoint.Kind
	}{
		{"studio", endpoint.Local},
		{"  studio  ", endpoint.Local},
		{"/tmp/some/path", endpoint.Local},
		{"relative/path", endpoint.Local},
		{"C:pipe", endpoint.Local},
		{"http:", endpoint.Local},
		{"http://relay:7480/pipes/studio", endpoint.HTTP},
		{"HTTPS://relay/pipes/studio", endpoint.HTTP},
		{"redis://localhost:6379/studio", endpoint.Redis},
		{"rediss://cache/0/studio", endpoint.Redis},
		{"ftp://host/file", endpoint.Unsupported},
	}
	for _, tc := range cases {
		if got := endpoint.Classify(tc.id); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.id, got, tc.want)
		}
		if again := endpoint.Classify(tc.id); again != endpoint.Classify(tc.id) {
			t.Errorf("Classify(%q) not deterministic", tc.id)
		}
	}
}

func TestOpenSelectsTransport(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	local, err := endpoint.Open("studio", cfg, endpoint.Deps{})
	if err != nil {
		t.Fatalf("open local: %v", err)
	}
	defer local.Close()
	if _, ok := local.(*localpipe.Transport); !ok {
		t.Fatalf("local endpoint opened %T", local)
	}

	remote, err := endpoint.Open("http://127.0.0.1:1/pipes/studio", cfg, endpoint.Deps{})
	if err != nil {
		t.Fatalf("open http: %v", err)
	}
	defer remote.Close()
	if _, ok := remote.(*httppipe.Transport); !ok {
		t.Fatalf("http endpoint opened %T", remote)
	}

	cache, err := endpoint.Open("redis://127.0.0.1:1/studio", cfg, endpoint.Deps{})
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	defer cache.Close()
	if _, ok := cache.(*redispipe.Transport); !ok {
		t.Fatalf("redis endpoint opened %T", cache)
	}

	if _, err := endpoint.Open("ftp://host/file", cfg, endpoint.Deps{}); !errors.Is(err, endpoint.ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme, got %v", err)
	}
}

func TestOpenPipeNamesLocalPipe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := endpoint.OpenPipe("studio", cfg, endpoint.Deps{})
	if err != nil {
		t.Fatalf("OpenPipe: %v", err)
	}
	defer p.ClosePipe()
	if p.Name() != "studio" {
		t.Fatalf("pipe name = %q", p.Name())
	}
}
