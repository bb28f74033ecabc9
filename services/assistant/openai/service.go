package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kaytu-io/news-assistant/services/assistant/coordinator"
	"github.com/kaytu-io/news-assistant/services/assistant/model"
	"github.com/kaytu-io/news-assistant/services/assistant/repository"
	"github.com/kaytu-io/news-assistant/services/assistant/tools"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const listAssistantsLimit = 100

type Config struct {
	Token      string
	BaseURL    string
	OrgID      string
	Model      string
	HTTPClient *http.Client
}

// AssistantDefinition describes the assistant a service resolves at startup.
// ID, when set, is used as is.
type AssistantDefinition struct {
	ID           string
	Name         string
	Instructions string
	Tools        []tools.Definition
}

type Service struct {
	logger *zap.Logger
	client *openai.Client
	model  string

	assistants repository.Assistant
}

// New creates the service. cache may be nil, in which case assistants are
// looked up by name on every EnsureAssistant call.
func New(logger *zap.Logger, cfg Config, cache repository.Assistant) *Service {
	config := openai.DefaultConfig(cfg.Token)
	config.OrgID = cfg.OrgID
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	return &Service{
		logger:     logger.Named("openai"),
		client:     openai.NewClientWithConfig(config),
		model:      cfg.Model,
		assistants: cache,
	}
}

// EnsureAssistant returns the id of the assistant described by def. It tries
// the configured id, then the local cache, then an existing remote assistant
// with the same name, and creates one as a last resort.
func (s *Service) EnsureAssistant(ctx context.Context, def AssistantDefinition) (string, error) {
	if def.ID != "" {
		s.logger.Info("using configured assistant", zap.String("assistant_id", def.ID))
		return def.ID, nil
	}

	if s.assistants != nil {
		cached, err := s.assistants.Get(ctx, def.Name)
		if err != nil {
			return "", fmt.Errorf("failed to read assistant cache due to %w", err)
		}
		if cached != nil {
			a, err := s.client.RetrieveAssistant(ctx, cached.ID)
			err = wrap("retrieve assistant", err)
			switch {
			case err == nil:
				return s.sync(ctx, def, a)
			case errors.Is(err, coordinator.ErrNotFound):
				s.logger.Warn("cached assistant no longer exists", zap.String("assistant_id", cached.ID), zap.String("assistant_name", def.Name))
				if err := s.assistants.Delete(ctx, def.Name); err != nil {
					return "", fmt.Errorf("failed to drop cached assistant due to %w", err)
				}
			default:
				return "", err
			}
		}
	}

	limit := listAssistantsLimit
	list, err := s.client.ListAssistants(ctx, &limit, nil, nil, nil)
	if err != nil {
		return "", wrap("list assistants", err)
	}
	for _, a := range list.Assistants {
		if a.Name != nil && *a.Name == def.Name {
			return s.sync(ctx, def, a)
		}
	}

	a, err := s.client.CreateAssistant(ctx, s.assistantRequest(def))
	if err != nil {
		s.logger.Error("failed to create assistant", zap.Error(err), zap.String("assistant_name", def.Name))
		return "", wrap("create assistant", err)
	}
	s.logger.Info("created assistant", zap.String("assistant_id", a.ID), zap.String("assistant_name", def.Name))

	return a.ID, s.remember(ctx, def, a.ID)
}

// sync updates a remote assistant whose instructions or tools drifted from def.
func (s *Service) sync(ctx context.Context, def AssistantDefinition, a openai.Assistant) (string, error) {
	if a.Instructions == nil || *a.Instructions != def.Instructions || !sameTools(a.Tools, def.Tools) {
		updated, err := s.client.ModifyAssistant(ctx, a.ID, s.assistantRequest(def))
		if err != nil {
			s.logger.Error("failed to modify assistant", zap.Error(err), zap.String("assistant_id", a.ID))
			return "", wrap("modify assistant", err)
		}
		s.logger.Info("updated assistant", zap.String("assistant_id", updated.ID), zap.String("assistant_name", def.Name))
		a = updated
	}
	return a.ID, s.remember(ctx, def, a.ID)
}

func (s *Service) remember(ctx context.Context, def AssistantDefinition, id string) error {
	if s.assistants == nil {
		return nil
	}
	if err := s.assistants.Save(ctx, model.Assistant{Name: def.Name, ID: id, Model: s.model}); err != nil {
		return fmt.Errorf("failed to cache assistant due to %w", err)
	}
	return nil
}

func (s *Service) assistantRequest(def AssistantDefinition) openai.AssistantRequest {
	name, instructions := def.Name, def.Instructions
	return openai.AssistantRequest{
		Model:        s.model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        AssistantTools(def.Tools),
	}
}

// AssistantTools declares defs as function tools.
func AssistantTools(defs []tools.Definition) []openai.AssistantTool {
	out := make([]openai.AssistantTool, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.AssistantTool{
			Type: openai.AssistantToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}

func sameTools(remote []openai.AssistantTool, defs []tools.Definition) bool {
	names := map[string]bool{}
	for _, t := range remote {
		if t.Type == openai.AssistantToolTypeFunction && t.Function != nil {
			names[t.Function.Name] = true
		}
	}
	if len(names) != len(defs) {
		return false
	}
	for _, def := range defs {
		if !names[def.Name] {
			return false
		}
	}
	return true
}
