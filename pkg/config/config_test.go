package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "boleta-pos", cfg.App.Name)
	assert.Equal(t, "America/Santiago", cfg.App.Timezone)
	assert.Equal(t, "1", cfg.SII.Rounding.String())
	assert.Equal(t, 5, cfg.SII.PDF417Level)
	assert.False(t, cfg.SII.RoundGlobally)
	assert.Equal(t, "80mm", cfg.SII.ReceiptFormat)
	assert.Equal(t, int32(25), cfg.DB.MaxConns)
	assert.True(t, cfg.DB.Migrate)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_Valores(t *testing.T) {
	v := viper.New()
	v.Set("SII_ROUNDING", "10")
	v.Set("SII_ROUND_GLOBALLY", "true")
	v.Set("SII_RECEIPT_FORMAT", "A4")
	v.Set("HTTP_PORT", "9090")
	v.Set("DB_PORT", "no-es-numero")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "10", cfg.SII.Rounding.String())
	assert.True(t, cfg.SII.RoundGlobally)
	assert.Equal(t, "a4", cfg.SII.ReceiptFormat)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 5432, cfg.DB.Port, "un entero inválido usa el valor por defecto")
}

func TestFromViper_Invalidos(t *testing.T) {
	for key, val := range map[string]string{
		"SII_ROUNDING":     "0",
		"SII_PDF417_LEVEL": "9",
	} {
		v := viper.New()
		v.Set(key, val)
		_, err := FromViper(v)
		assert.Error(t, err, key)
	}
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "pos", Password: "p@ss:wd", DBName: "boleta_pos", SSLMode: "disable"}
	assert.Equal(t, "postgres://pos:p%40ss%3Awd@db:5432/boleta_pos?sslmode=disable", c.DSN())
	assert.Equal(t, c.DSN(), c.ConnectionString())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, AppConfig{Timezone: "Marte/Olympus"}.Location())
	assert.Equal(t, "UTC", AppConfig{Timezone: "UTC"}.Location().String())
}
