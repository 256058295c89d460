package param

import (
	"context"
	"errors"
	"testing"
)

type stubFetcher struct {
	value string
	err   error
}

func (s *stubFetcher) Fetch(ctx context.Context, path string) (string, error) {
	return s.value, s.err
}

func TestResolveModelID(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		fetcher  Fetcher
		fallback string
		want     string
	}{
		{
			name:     "no path uses fallback",
			path:     "",
			fetcher:  &stubFetcher{value: "from-ssm"},
			fallback: "fallback-model",
			want:     "fallback-model",
		},
		{
			name:     "resolved from ssm",
			path:     "/canvas/model-id",
			fetcher:  &stubFetcher{value: "amazon.nova-canvas-v1:0"},
			fallback: "fallback-model",
			want:     "amazon.nova-canvas-v1:0",
		},
		{
			name:     "fetch failure falls back",
			path:     "/canvas/model-id",
			fetcher:  &stubFetcher{err: errors.New("access denied")},
			fallback: "fallback-model",
			want:     "fallback-model",
		},
		{
			name:     "empty value falls back",
			path:     "/canvas/model-id",
			fetcher:  &stubFetcher{value: ""},
			fallback: "fallback-model",
			want:     "fallback-model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveModelID(context.Background(), tt.fetcher, tt.path, tt.fallback)
			if got != tt.want {
				t.Errorf("ResolveModelID() = %q, want %q", got, tt.want)
			}
		})
	}
}
