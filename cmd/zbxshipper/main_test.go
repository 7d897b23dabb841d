package main

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlassian/zbxshipper"
	"github.com/atlassian/zbxshipper/internal/fixtures"
	"github.com/atlassian/zbxshipper/pkg/sender"
)

func TestSetupConfiguration(t *testing.T) {
	v, version, err := setupConfiguration([]string{"zbxshipper", "--hostname", "web01", "--port", "10051", "--sender-config", "/etc/zabbix/zabbix_agentd.conf"})
	require.NoError(t, err)
	assert.False(t, version)
	assert.Equal(t, "web01", v.GetString(zbxshipper.ParamHostname))
	assert.Equal(t, 10051, v.GetInt(zbxshipper.ParamPort))
	assert.Equal(t, "/etc/zabbix/zabbix_agentd.conf", v.GetString(zbxshipper.ParamSenderConfig))
	assert.Equal(t, "zabbix_sender", v.GetString(zbxshipper.ParamBin))
	assert.Equal(t, "-", v.GetString(zbxshipper.ParamInput))
}

func TestSetupConfigurationConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zbxshipper.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("bin: /opt/zabbix/bin/zabbix_sender\nhttp:\n  burst: 3\n"), 0600))

	v, _, err := setupConfiguration([]string{"zbxshipper", "--config-path", path})
	require.NoError(t, err)
	assert.Equal(t, "/opt/zabbix/bin/zabbix_sender", v.GetString(zbxshipper.ParamBin))
	assert.Equal(t, 3, v.GetInt("http.burst"))
}

func TestSetupConfigurationHelp(t *testing.T) {
	_, _, err := setupConfiguration([]string{"zbxshipper", "--help"})
	assert.Equal(t, pflag.ErrHelp, err)
}

func TestSetupConfigurationVersion(t *testing.T) {
	_, version, err := setupConfiguration([]string{"zbxshipper", "--version"})
	require.NoError(t, err)
	assert.True(t, version)
}

func TestSendOnceFromStdin(t *testing.T) {
	v, _, err := setupConfiguration([]string{"zbxshipper", "--hostname", "HOSTNAME"})
	require.NoError(t, err)

	spawner := &fixtures.MockSpawner{TB: t}
	shipper := sender.NewFromViper(v, spawner, fixtures.NewTestLogger(t))
	require.NoError(t, sendOnce(v, strings.NewReader(`{"keyA": {"keyB": "propC"}}`), shipper))

	call := spawner.OnlyCall()
	assert.Equal(t, "zabbix_sender", call.Name)
	assert.Equal(t, []string{"--input-file", "-"}, call.Args)
	assert.Equal(t, "HOSTNAME keyA.keyB propC\n", call.Input.String())
	assert.Equal(t, 1, call.Input.Closes())
}

func TestSendOnceFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.yml")
	require.NoError(t, ioutil.WriteFile(path, []byte("keyA:\n  keyB: propC\n"), 0600))

	v, _, err := setupConfiguration([]string{"zbxshipper", "--input", path, "--port", "12345"})
	require.NoError(t, err)

	spawner := &fixtures.MockSpawner{TB: t}
	shipper := sender.NewFromViper(v, spawner, fixtures.NewTestLogger(t))
	require.NoError(t, sendOnce(v, strings.NewReader("ignored"), shipper))

	call := spawner.OnlyCall()
	assert.Equal(t, []string{"--port", "12345", "--input-file", "-"}, call.Args)
	assert.Equal(t, "- keyA.keyB propC\n", call.Input.String())
}

type failingShipper struct{}

func (failingShipper) Send(data zbxshipper.Value, onError zbxshipper.ErrorCallback) {
	onError(errors.New("exec: not found"))
}

func TestSendOnceReportsSpawnFailure(t *testing.T) {
	v, _, err := setupConfiguration([]string{"zbxshipper"})
	require.NoError(t, err)
	err = sendOnce(v, strings.NewReader(`{}`), failingShipper{})
	require.EqualError(t, err, "exec: not found")
}

func TestSendOnceBadInput(t *testing.T) {
	v, _, err := setupConfiguration([]string{"zbxshipper"})
	require.NoError(t, err)
	spawner := &fixtures.MockSpawner{TB: t}
	shipper := sender.NewFromViper(v, spawner, fixtures.NewTestLogger(t))

	err = sendOnce(v, strings.NewReader(`{"a":`), shipper)
	require.Error(t, err)
	assert.Empty(t, spawner.Calls())

	v, _, err = setupConfiguration([]string{"zbxshipper", "--format", "xml"})
	require.NoError(t, err)
	require.Error(t, sendOnce(v, strings.NewReader(`{}`), shipper))

	v, _, err = setupConfiguration([]string{"zbxshipper", "--input", filepath.Join(t.TempDir(), "missing.json")})
	require.NoError(t, err)
	require.Error(t, sendOnce(v, strings.NewReader(`{}`), shipper))
}
