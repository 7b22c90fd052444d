package e2e

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ridepool/app"
	"github.com/kilianp07/ridepool/config"
	"github.com/kilianp07/ridepool/core/factory"
)

const (
	org    = "e2e_org"
	bucket = "e2e_bucket"
	token  = "e2e-token"
)

// junitReport is a minimal representation of a JUnit XML report. The E2E
// suite writes such a report so CI systems can display the results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// startInflux starts an InfluxDB 2.7 container already set up with the test
// organisation, bucket and token.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         org,
			"DOCKER_INFLUXDB_INIT_BUCKET":      bucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": token,
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

// startMosquitto spins up a basic Mosquitto broker for tests.
func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:1.6",
		ExposedPorts: []string{"1883/tcp"},
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

func writeInputs(t *testing.T, dir string) (string, string) {
	t.Helper()
	fleet := filepath.Join(dir, "fleet.csv")
	reqs := filepath.Join(dir, "requests.csv")
	require.NoError(t, os.WriteFile(fleet, []byte("vehicle_id,lon,lat,capacity\nv1,11.50,48.10,4\nv2,11.60,48.15,4\n"), 0o644))
	require.NoError(t, os.WriteFile(reqs, []byte(`booking_id,person_id,o_time,o_lon,o_lat,d_lon,d_lat
1,a,2024-03-01 08:00:00,11.51,48.10,11.53,48.11
2,b,2024-03-01 08:01:00,11.59,48.15,11.57,48.13
`), 0o644))
	return fleet, reqs
}

// Test_E2E_RunExportsToInfluxAndBroker runs a small simulation with the
// Influx sink and the MQTT mirror enabled and reads the outcomes back.
func Test_E2E_RunExportsToInfluxAndBroker(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	started := time.Now()

	influxCont, influxURL := startInflux(ctx, t)
	defer influxCont.Terminate(ctx) //nolint:errcheck
	mqttCont, mqttURL := startMosquitto(ctx, t)
	defer mqttCont.Terminate(ctx) //nolint:errcheck

	dir := t.TempDir()
	fleet, reqs := writeInputs(t, dir)
	cfg := &config.Config{}
	cfg.Input.Vehicles = fleet
	cfg.Input.Requests = reqs
	cfg.Logging.Backend = "memory"
	cfg.MQTT.Broker = mqttURL
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "influx", Conf: map[string]any{
		"url": influxURL, "token": token, "org": org, "bucket": bucket,
	}}}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	svc, err := app.New(ctx, cfg)
	require.NoError(t, err)
	sum, err := svc.Run(ctx, false)
	require.NoError(t, err)
	require.NoError(t, svc.Close())
	assert.Equal(t, 2, sum.Completed)

	cli := NewInfluxClient(influxURL, org, bucket, token)
	defer cli.Close()
	assert.Eventually(t, func() bool {
		n, err := cli.Count(ctx, "trip_outcome", "request_id", map[string]string{"status": "COMPLETED"})
		return err == nil && n == 2
	}, 30*time.Second, time.Second)

	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{
		Name: "Test_E2E_RunExportsToInfluxAndBroker",
		Time: time.Since(started).Seconds(),
	}}}
	if err := writeJUnit(filepath.Join(dir, "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
