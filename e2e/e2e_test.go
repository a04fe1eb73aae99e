package e2e

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/gridsim/app"
	"github.com/kilianp07/gridsim/config"
	"github.com/kilianp07/gridsim/core/factory"
	coremetrics "github.com/kilianp07/gridsim/core/metrics"
	"github.com/kilianp07/gridsim/core/result"
	"github.com/kilianp07/gridsim/core/scheduler"
	"github.com/kilianp07/gridsim/core/variant"
	"github.com/kilianp07/gridsim/infra/mqtt"
)

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
)

// startInflux starts an InfluxDB 2.7 container initialized with the e2e
// organisation, bucket and token, and returns it with its base URL.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return cont, fmt.Sprintf("http://%s:%s", host, port.Port())
}

// startMosquitto spins up a Mosquitto broker accepting anonymous clients.
func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return cont, fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// lossesExecutor stands in for the solver and writes one LOSSES record
// per variant.
type lossesExecutor struct{}

func (lossesExecutor) Execute(_ context.Context, dir string, t scheduler.Task) (scheduler.ExecutionReport, error) {
	for v := t.Range.First; v <= t.Range.Last; v++ {
		line := fmt.Sprintf("C1 ;;0\nR8 ;;%d\n", v)
		if err := os.WriteFile(filepath.Join(dir, result.FileName(v)), []byte(line), 0o644); err != nil {
			return scheduler.ExecutionReport{}, err
		}
	}
	return scheduler.ExecutionReport{}, nil
}

type progressCollector struct {
	mu     sync.Mutex
	topics []string
}

func (p *progressCollector) handle(_ paho.Client, msg paho.Message) {
	p.mu.Lock()
	p.topics = append(p.topics, msg.Topic())
	p.mu.Unlock()
}

func (p *progressCollector) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

func Test_E2E_RunPublishesMetricsAndProgress(t *testing.T) {
	if testing.Short() {
		t.Skip("e2e test skipped in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	influxCont, influxURL := startInflux(ctx, t)
	defer influxCont.Terminate(ctx) //nolint:errcheck
	mqttCont, brokerURL := startMosquitto(ctx, t)
	defer mqttCont.Terminate(ctx) //nolint:errcheck

	progress := &progressCollector{}
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(brokerURL).SetClientID("e2e-sub"))
	token := sub.Connect()
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())
	defer sub.Disconnect(100)
	token = sub.Subscribe("e2e/runs/#", 1, progress.handle)
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())

	dir := t.TempDir()
	cfg := &config.Config{
		Run: config.RunConfig{
			Versions:  []int{1, 2},
			Ranges:    []variant.Range{{First: 0, Last: 9}},
			ChunkSize: 4,
		},
		Metrics: coremetrics.Config{Sinks: []factory.ModuleConfig{{
			Type: "influx",
			Conf: map[string]any{"url": influxURL, "token": influxToken, "org": influxOrg, "bucket": influxBucket},
		}}},
		Store: config.StoreConfig{SQLitePath: filepath.Join(dir, "series.db")},
		MQTT:  mqtt.Config{Broker: brokerURL, ClientID: "e2e-pub", TopicPrefix: "e2e", QoS: map[string]byte{"chunk": 1, "run": 1, "version": 1}},
	}
	cfg.SetDefaults()

	svc, err := app.New(cfg, app.WithExecutor(lossesExecutor{}), app.WithRunID("e2e-run"))
	require.NoError(t, err)
	rep, err := svc.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Close())
	assert.Len(t, rep.Chunks, 6)
	assert.Empty(t, rep.Failed())

	// begin + end, 2 x version begin/end, 6 chunks
	assert.Eventually(t, func() bool { return progress.count() == 12 }, 10*time.Second, 100*time.Millisecond)

	cli := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer cli.Close()
	n, err := cli.ChunkPoints(ctx, "e2e-run")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}
