package cmd

import (
	"bytes"
	"testing"

	"github.com/evanofslack/aliyun-pvtz-sync/internal/config"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/metrics"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/reconcile"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := rootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "once", "plan", "verify"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.RunE, "root runs the loop without a subcommand")
}

func TestPrintPlan(t *testing.T) {
	summary := reconcile.Summary{
		Hosts: 2,
		Owned: 1,
		Plan: reconcile.Plan{
			Operations: []reconcile.Operation{
				{Kind: reconcile.OpAdd, Hostname: "web-1", Address: "10.0.0.1"},
				{Kind: reconcile.OpRemove, Hostname: "old", Address: "10.0.0.9", RecordID: "42"},
			},
			Added:   1,
			Removed: 1,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printPlan(&buf, "example.internal", summary))
	assert.Equal(t, "+ web-1.example.internal -> 10.0.0.1\n"+
		"- old.example.internal -> 10.0.0.9 (42)\n"+
		"1 to add, 1 to remove (2 hosts, 1 owned records)\n", buf.String())
}

func TestPrintMismatches(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printMismatches(&buf, []verify.Mismatch{
		{Hostname: "web-1", Want: []string{"10.0.0.1"}, Got: []string{"10.0.0.2"}},
		{Hostname: "db-1", Want: []string{"10.0.0.3"}, Error: "i/o timeout"},
	}))
	assert.Equal(t, "web-1: want [10.0.0.1] got [10.0.0.2]\n"+
		"db-1: want [10.0.0.3] got [] error: i/o timeout\n", buf.String())
}

func TestNewProvider(t *testing.T) {
	m := metrics.New(false)

	cf, err := newProvider(&config.Config{DNS: config.DNS{Provider: "cloudflare", Token: "token", Domain: "example.com"}}, m)
	require.NoError(t, err)
	assert.Equal(t, "cloudflare", cf.Name())

	pz, err := newProvider(&config.Config{
		Aliyun: config.Aliyun{AccessKey: "ak", SecretKey: "sk", RegionID: "cn-hangzhou"},
		DNS:    config.DNS{Provider: "pvtz", RegionID: "cn-hangzhou", Domain: "example.internal"},
	}, m)
	require.NoError(t, err)
	assert.Equal(t, "pvtz", pz.Name())

	_, err = newProvider(&config.Config{DNS: config.DNS{Provider: "route53"}}, m)
	assert.Error(t, err)
}
