package shared_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cofind/internal/shared"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SHOP_SOURCE", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("CACHE_TTL_SECONDS", "")
	t.Setenv("INGEST_LOCATIONS", "")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "")
	t.Setenv("LLM_TOP_P", "")

	c := shared.Load()
	assert.Equal(t, "sqlite", c.ShopSource)
	assert.Equal(t, "anthropic", c.LLMProvider)
	assert.Equal(t, 15*time.Minute, c.CacheTTL)
	assert.Equal(t, []string{"Pontianak"}, c.Locations)
	assert.Equal(t, time.Minute, c.RequestTimeout)
	assert.Zero(t, c.LLMTopP)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SHOP_SOURCE", "JSON")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "other")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	t.Setenv("MAX_SHOPS", "not-a-number")
	t.Setenv("INGEST_LOCATIONS", "Pontianak, Singkawang,,")

	c := shared.Load()
	assert.Equal(t, "json", c.ShopSource)
	assert.Equal(t, "sk-test", c.LLMKey())
	assert.InDelta(t, 0.7, c.LLMTemperature, 1e-9)
	assert.Equal(t, 10, c.MaxShops)
	assert.Equal(t, []string{"Pontianak", "Singkawang"}, c.Locations)
}
