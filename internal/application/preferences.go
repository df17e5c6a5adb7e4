package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
)

type PreferenceService struct {
	repo ports.PreferenceRepository
}

func NewPreferenceService(repo ports.PreferenceRepository) *PreferenceService {
	return &PreferenceService{repo: repo}
}

func (s *PreferenceService) Language(ctx context.Context) (domain.Language, error) {
	raw, err := s.repo.Get(ctx, domain.LanguagePreferenceKey)
	if err != nil {
		if errors.Is(err, domain.ErrPreferenceNotFound) {
			return domain.DefaultLanguage, nil
		}
		return "", fmt.Errorf("get language preference: %w", err)
	}

	lang, err := domain.ParseLanguage(raw)
	if err != nil {
		return domain.DefaultLanguage, nil
	}

	return lang, nil
}

func (s *PreferenceService) SetLanguage(ctx context.Context, lang domain.Language) error {
	if _, err := domain.ParseLanguage(string(lang)); err != nil {
		return err
	}

	if err := s.repo.Set(ctx, domain.LanguagePreferenceKey, string(lang)); err != nil {
		return fmt.Errorf("save language preference: %w", err)
	}

	return nil
}

func (s *PreferenceService) ToggleLanguage(ctx context.Context) (domain.Language, error) {
	current, err := s.Language(ctx)
	if err != nil {
		return "", err
	}

	next := current.Toggle()
	if err := s.SetLanguage(ctx, next); err != nil {
		return "", err
	}

	return next, nil
}
