package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/scout/internal/config"
	"thirdcoast.systems/scout/internal/credentials"
	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/internal/testsupport"
	"thirdcoast.systems/scout/internal/topicgraph"
)

func TestInitCredentialSealer(t *testing.T) {
	key := strings.Repeat("00", 32)

	for _, cipher := range []string{"chacha20-poly1305", "XChaCha20-Poly1305"} {
		t.Run(cipher, func(t *testing.T) {
			s, err := InitCredentialSealer(config.Config{CredentialsKeyHex: key, CredentialsCipher: cipher})
			require.NoError(t, err)
			require.NotNil(t, s)
		})
	}

	s, err := InitCredentialSealer(config.Config{CredentialsCipher: "chacha20-poly1305"})
	require.NoError(t, err)
	require.Nil(t, s)

	_, err = InitCredentialSealer(config.Config{CredentialsKeyHex: "zz"})
	require.Error(t, err)

	_, err = InitCredentialSealer(config.Config{CredentialsKeyHex: "0000"})
	require.Error(t, err)

	s, err = InitCredentialSealer(config.Config{CredentialsKeyHex: key, CredentialsCipher: ""})
	require.NoError(t, err)
	require.Equal(t, credentials.ChaCha20Poly1305, s.Type())
}

func TestBackoff_GoldenRatio(t *testing.T) {
	require.Equal(t, time.Second, backoff(0))
	require.InDelta(t, float64(1618*time.Millisecond), float64(backoff(1)), float64(time.Millisecond))
}

func TestGraphParams_FromConfig(t *testing.T) {
	conf := config.Config{Graph: config.GraphConfig{
		MinimumSampleSize:    5,
		RegularizationWeight: 2.5,
		WeightViews:          1,
		WeightLikes:          3,
	}}
	p := GraphParams(conf)
	require.Equal(t, 5, p.MinimumSampleSize)
	require.Equal(t, 2.5, p.RegularizationWeight)
	require.Equal(t, 3.0, p.WeightLikes)
	require.Zero(t, p.WeightComments)
	require.Equal(t, 5, p.MaxEdgesPerTopic)
}

func TestSuggestConfig_Selector(t *testing.T) {
	conf := config.Config{Suggest: config.SuggestConfig{TopicCount: 2, Selector: "multiplier"}}
	sc, err := SuggestConfig(conf)
	require.NoError(t, err)
	require.Equal(t, 2, sc.TopicCount)
	require.Equal(t, topicgraph.ByMultiplier{}, sc.Selector)

	conf.Suggest.Selector = "random"
	_, err = SuggestConfig(conf)
	require.Error(t, err)
}

func TestInitialScrapeHook_RebuildsGraphWithoutSuggestions(t *testing.T) {
	store := testsupport.NewMemoryStore()
	tenant := store.AddTenant("acme")
	c := &Components{Graphs: topicgraph.NewService(store, topicgraph.DefaultParams())}

	hook := c.InitialScrapeHook()
	require.NotNil(t, hook)
	require.Nil(t, store.Graph(tenant.ID))

	hook(context.Background(), tenant.ID, platform.YouTube)
	require.NotNil(t, store.Graph(tenant.ID))

	// A failed rebuild is logged, not raised.
	store.Fail = func(method string) error {
		if method == "SaveTopicGraph" {
			return errors.New("disk full")
		}
		return nil
	}
	hook(context.Background(), tenant.ID, platform.YouTube)
}
