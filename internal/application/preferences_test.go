package application

import (
	"context"
	"errors"
	"testing"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPreferences struct {
	values map[string]string
	getErr error
}

func (m *memoryPreferences) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	value, ok := m.values[key]
	if !ok {
		return "", domain.ErrPreferenceNotFound
	}
	return value, nil
}

func (m *memoryPreferences) Set(_ context.Context, key string, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func TestPreferenceServiceLanguage(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to english", func(t *testing.T) {
		svc := NewPreferenceService(&memoryPreferences{})
		lang, err := svc.Language(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.LanguageEnglish, lang)
	})

	t.Run("ignores unknown stored value", func(t *testing.T) {
		svc := NewPreferenceService(&memoryPreferences{values: map[string]string{domain.LanguagePreferenceKey: "fr"}})
		lang, err := svc.Language(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.LanguageEnglish, lang)
	})

	t.Run("surfaces repository errors", func(t *testing.T) {
		svc := NewPreferenceService(&memoryPreferences{getErr: errors.New("disk")})
		_, err := svc.Language(ctx)
		assert.Error(t, err)
	})
}

func TestPreferenceServiceToggleAndSet(t *testing.T) {
	ctx := context.Background()
	repo := &memoryPreferences{}
	svc := NewPreferenceService(repo)

	lang, err := svc.ToggleLanguage(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageBangla, lang)
	assert.Equal(t, "bn", repo.values[domain.LanguagePreferenceKey])

	lang, err = svc.ToggleLanguage(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageEnglish, lang)

	assert.ErrorIs(t, svc.SetLanguage(ctx, domain.Language("de")), domain.ErrUnsupportedLanguage)
	assert.Equal(t, "en", repo.values[domain.LanguagePreferenceKey])
}
