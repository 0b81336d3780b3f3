//go:build integration

// Package testutils provides shared test infrastructure for integration tests.
package testutils

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gocloud.dev/blob"
)

// CatalogItem scripts one item served by the stub catalog. Codes are
// returned in order, one per request; once the script is exhausted the
// item serves 200 with its record. An empty script serves 200 directly.
type CatalogItem struct {
	ID     int
	Script []int
}

// CatalogServer is a stub catalog API for integration tests.
type CatalogServer struct {
	*httptest.Server

	mu    sync.Mutex
	items map[string]*catalogState
}

type catalogState struct {
	id     int
	script []int
	served int
}

// StartCatalogServer serves the given items under /pokemon/{name}.
// Unknown names get 404.
func StartCatalogServer(t *testing.T, items map[string]CatalogItem) *CatalogServer {
	t.Helper()

	cs := &CatalogServer{items: make(map[string]*catalogState, len(items))}
	for name, item := range items {
		cs.items[name] = &catalogState{id: item.ID, script: item.Script}
	}

	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/pokemon/")

		cs.mu.Lock()
		st, ok := cs.items[name]
		if !ok {
			cs.mu.Unlock()
			http.NotFound(w, r)
			return
		}
		n := st.served
		st.served++
		cs.mu.Unlock()

		if n < len(st.script) {
			w.WriteHeader(st.script[n])
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%d,"name":%q,"height":4,"weight":60}`, st.id, name)
	}))
	t.Cleanup(cs.Server.Close)
	return cs
}

// BaseURL is the catalog endpoint to hand to the fetch client.
func (cs *CatalogServer) BaseURL() string {
	return cs.Server.URL + "/pokemon"
}

// Requests returns how many requests an item has received.
func (cs *CatalogServer) Requests(name string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if st, ok := cs.items[name]; ok {
		return st.served
	}
	return 0
}

// MinioEnv points at a minio container holding one pre-created bucket.
type MinioEnv struct {
	Container testcontainers.Container
	BucketURL string
}

// OpenBucket opens a gocloud bucket connection to the environment.
func (e *MinioEnv) OpenBucket(ctx context.Context) (*blob.Bucket, error) {
	return blob.OpenBucket(ctx, e.BucketURL)
}

// StartMinio starts a minio container, creates bucketName in it, and
// returns a gocloud s3 URL for it. Credentials are exported through the
// test environment so the s3 driver picks them up.
func StartMinio(t *testing.T, ctx context.Context, bucketName string) *MinioEnv {
	t.Helper()

	const creds = "minioadmin"

	networkName := fmt.Sprintf("pokefetch-test-%d", time.Now().UnixNano())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{Name: networkName},
	})
	if err != nil {
		t.Fatalf("create network: %v", err)
	}
	t.Cleanup(func() { network.Remove(ctx) })

	minio, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          "minio/minio:latest",
			ExposedPorts:   []string{"9000/tcp"},
			Networks:       []string{networkName},
			NetworkAliases: map[string][]string{networkName: {"minio"}},
			Env: map[string]string{
				"MINIO_ROOT_USER":     creds,
				"MINIO_ROOT_PASSWORD": creds,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}
	t.Cleanup(func() { minio.Terminate(ctx) })

	// One-shot mc container creates the bucket, then exits.
	mc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      "minio/mc:latest",
			Networks:   []string{networkName},
			Entrypoint: []string{"/bin/sh", "-c"},
			Cmd: []string{fmt.Sprintf(
				"/usr/bin/mc config host add local http://minio:9000 %s %s && /usr/bin/mc mb local/%s; exit 0",
				creds, creds, bucketName,
			)},
			WaitingFor: wait.ForExit(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mc container: %v", err)
	}
	mc.Terminate(ctx)

	host, err := minio.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := minio.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	t.Setenv("AWS_ACCESS_KEY_ID", creds)
	t.Setenv("AWS_SECRET_ACCESS_KEY", creds)

	return &MinioEnv{
		Container: minio,
		BucketURL: fmt.Sprintf(
			"s3://%s?endpoint=http://%s:%s&use_path_style=true&disable_https=true&region=us-east-1",
			bucketName, host, port.Port(),
		),
	}
}
