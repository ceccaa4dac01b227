package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thannaske/ocicost/pkg/auth"
	"github.com/thannaske/ocicost/pkg/models"
)

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocicost.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bucket: finance-reports
s3_endpoint: https://ns.compat.objectstorage.ap-sydney-1.oraclecloud.com
s3_region: ap-sydney-1
db_path: /var/lib/ocicost/runs.db
proxy: www-proxy.example.com:80
`), 0o600))

	s, err := loadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, models.Config{
		Bucket:     "finance-reports",
		S3Endpoint: "https://ns.compat.objectstorage.ap-sydney-1.oraclecloud.com",
		S3Region:   "ap-sydney-1",
		DBPath:     "/var/lib/ocicost/runs.db",
		Proxy:      "www-proxy.example.com:80",
	}, s)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := loadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplySettingsRespectsFlags(t *testing.T) {
	saved := config
	t.Cleanup(func() {
		config = saved
		rootCmd.PersistentFlags().Lookup("bucket").Changed = false
	})

	require.NoError(t, rootCmd.PersistentFlags().Set("bucket", "from-flag"))
	applySettings(models.Config{Bucket: "from-file", S3Region: "eu-frankfurt-1"})

	assert.Equal(t, "from-flag", config.Bucket)
	assert.Equal(t, "eu-frankfurt-1", config.S3Region)
}

func TestAuthMode(t *testing.T) {
	t.Cleanup(func() {
		useInstancePrincipal, useDelegationToken = false, false
		ociConfigFile, ociProfile = "", ""
	})

	ociConfigFile, ociProfile = "/etc/oci/config", "REPORTING"
	mode, err := authMode()
	require.NoError(t, err)
	assert.Equal(t, auth.ConfigFile{Path: "/etc/oci/config", Profile: "REPORTING"}, mode)

	useInstancePrincipal = true
	mode, err = authMode()
	require.NoError(t, err)
	assert.Equal(t, auth.InstancePrincipal{}, mode)

	useDelegationToken = true
	_, err = authMode()
	assert.Error(t, err)

	useInstancePrincipal = false
	mode, err = authMode()
	require.NoError(t, err)
	assert.Equal(t, auth.DelegationToken{}, mode)
}

func TestDateInput(t *testing.T) {
	t.Cleanup(func() {
		dateStart, dateEnd, days = "", "", 0
		rootCmd.Flags().Lookup("days").Changed = false
	})

	in, err := dateInput(rootCmd)
	require.NoError(t, err)
	assert.Nil(t, in.Start)
	assert.Nil(t, in.End)
	assert.Nil(t, in.Days)

	dateStart, dateEnd = "2024-01-01", "2024-01-31"
	require.NoError(t, rootCmd.Flags().Set("days", "0"))
	in, err = dateInput(rootCmd)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", in.Start.Format("2006-01-02"))
	assert.Equal(t, "2024-01-31", in.End.Format("2006-01-02"))
	require.NotNil(t, in.Days)
	assert.Zero(t, *in.Days)

	dateEnd = "31/01/2024"
	_, err = dateInput(rootCmd)
	assert.Error(t, err)
}
