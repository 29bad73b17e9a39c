package services

import (
  "context"
  "fmt"
  "strings"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/aokimori/libretutor-backend/internal/logger"
  "github.com/aokimori/libretutor-backend/internal/repos"
  "github.com/aokimori/libretutor-backend/internal/requestdata"
  "github.com/aokimori/libretutor-backend/internal/types"
)

// DefaultPromptName and DefaultPromptTemplate seed every new account with a
// tutoring prompt. {context} is replaced at chat time with the retrieved
// book sections.
const DefaultPromptName = "AI Tutor (default)"

const DefaultPromptTemplate = `# Your role

You are a patient, thorough AI tutor. The learner should be able to fully
understand the book through your explanations alone, without reading it.

Principles:
- Explain the material in detail before asking anything about it
- Use plenty of concrete examples, and code or diagrams where they help
- After each explanation, check understanding with three multiple-choice
  questions; move on only when all three are answered correctly
- When the learner misses a question, re-explain that part positively and
  ask again; mistakes are a chance to learn, never something to scold
- Respect the learner's pace and keep sessions to roughly 15-20 exchanges
- Prefer prefixes like "Important:" over bold or italic emphasis

# Provided context

{context}`

// FallbackPromptContent grounds the chat when a user somehow has no default
// prompt row.
const FallbackPromptContent = `You are an excellent AI tutor. Answer the learner's questions clearly and
carefully, grounded on the provided book context. Prefer information from the
context, break down jargon, add examples where useful, and say so explicitly
when you fall back to general knowledge.

# Provided context

{context}`

const EmptyContextNotice = "(No context was found. Answer from general knowledge.)"

type PromptService interface {
  SeedDefaultPrompt(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
  ListPrompts(ctx context.Context) ([]*types.SystemPrompt, error)
  CreatePrompt(ctx context.Context, name, content string, isDefault bool) (*types.SystemPrompt, error)
  UpdatePrompt(ctx context.Context, promptID uuid.UUID, name, content string, isDefault bool) (*types.SystemPrompt, error)
  DeletePrompt(ctx context.Context, promptID uuid.UUID) error
  GetDefaultPrompt(ctx context.Context) (*types.SystemPrompt, error)
}

type promptService struct {
  db          *gorm.DB
  log         *logger.Logger
  promptRepo  repos.SystemPromptRepo
}

func NewPromptService(db *gorm.DB, log *logger.Logger, promptRepo repos.SystemPromptRepo) PromptService {
  serviceLog := log.With("service", "PromptService")
  return &promptService{db: db, log: serviceLog, promptRepo: promptRepo}
}

func (ps *promptService) SeedDefaultPrompt(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
  existing, err := ps.promptRepo.GetDefaultForUser(ctx, tx, userID)
  if err != nil {
    return fmt.Errorf("Failed to check default prompt: %w", err)
  }
  if existing != nil {
    return nil
  }
  prompt := &types.SystemPrompt{
    ID:        uuid.New(),
    UserID:    userID,
    Name:      DefaultPromptName,
    Content:   DefaultPromptTemplate,
    IsDefault: true,
  }
  if _, cErr := ps.promptRepo.Create(ctx, tx, []*types.SystemPrompt{prompt}); cErr != nil {
    return fmt.Errorf("Failed to create default prompt: %w", cErr)
  }
  return nil
}

func (ps *promptService) ListPrompts(ctx context.Context) ([]*types.SystemPrompt, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }
  prompts, err := ps.promptRepo.GetByUserIDs(ctx, nil, []uuid.UUID{rd.UserID})
  if err != nil {
    return nil, fmt.Errorf("Failed to fetch prompts: %w", err)
  }
  return prompts, nil
}

func (ps *promptService) CreatePrompt(ctx context.Context, name, content string, isDefault bool) (*types.SystemPrompt, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }
  name = strings.TrimSpace(name)
  if name == "" || strings.TrimSpace(content) == "" {
    return nil, fmt.Errorf("Name and content are required")
  }

  prompt := &types.SystemPrompt{
    ID:        uuid.New(),
    UserID:    rd.UserID,
    Name:      name,
    Content:   content,
    IsDefault: isDefault,
  }
  if err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if isDefault {
      if cdErr := ps.promptRepo.ClearDefaultForUser(ctx, tx, rd.UserID); cdErr != nil {
        return fmt.Errorf("Failed to clear existing default prompt: %w", cdErr)
      }
    }
    if _, cErr := ps.promptRepo.Create(ctx, tx, []*types.SystemPrompt{prompt}); cErr != nil {
      return fmt.Errorf("Failed to create prompt: %w", cErr)
    }
    return nil
  }); err != nil {
    return nil, err
  }
  return prompt, nil
}

func (ps *promptService) UpdatePrompt(ctx context.Context, promptID uuid.UUID, name, content string, isDefault bool) (*types.SystemPrompt, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }

  var out *types.SystemPrompt
  if err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    prompt, gErr := ps.promptRepo.GetByIDForUser(ctx, tx, promptID, rd.UserID)
    if gErr != nil {
      return fmt.Errorf("Failed to fetch prompt: %w", gErr)
    }
    if prompt == nil {
      return fmt.Errorf("Prompt not found")
    }
    if isDefault && !prompt.IsDefault {
      if cdErr := ps.promptRepo.ClearDefaultForUser(ctx, tx, rd.UserID); cdErr != nil {
        return fmt.Errorf("Failed to clear existing default prompt: %w", cdErr)
      }
    }
    prompt.Name = strings.TrimSpace(name)
    prompt.Content = content
    prompt.IsDefault = isDefault
    if uErr := ps.promptRepo.Update(ctx, tx, prompt); uErr != nil {
      return fmt.Errorf("Failed to update prompt: %w", uErr)
    }
    out = prompt
    return nil
  }); err != nil {
    return nil, err
  }
  return out, nil
}

func (ps *promptService) DeletePrompt(ctx context.Context, promptID uuid.UUID) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return fmt.Errorf("Unauthorized")
  }
  return ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    prompt, gErr := ps.promptRepo.GetByIDForUser(ctx, tx, promptID, rd.UserID)
    if gErr != nil {
      return fmt.Errorf("Failed to fetch prompt: %w", gErr)
    }
    if prompt == nil {
      return fmt.Errorf("Prompt not found")
    }
    if dErr := ps.promptRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{prompt.ID}); dErr != nil {
      return fmt.Errorf("Failed to delete prompt: %w", dErr)
    }
    return nil
  })
}

// GetDefaultPrompt returns the user's default prompt, seeding one on first
// access for accounts that predate prompt seeding at registration.
func (ps *promptService) GetDefaultPrompt(ctx context.Context) (*types.SystemPrompt, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }

  var out *types.SystemPrompt
  if err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    prompt, gErr := ps.promptRepo.GetDefaultForUser(ctx, tx, rd.UserID)
    if gErr != nil {
      return fmt.Errorf("Failed to fetch default prompt: %w", gErr)
    }
    if prompt == nil {
      if sErr := ps.SeedDefaultPrompt(ctx, tx, rd.UserID); sErr != nil {
        return sErr
      }
      prompt, gErr = ps.promptRepo.GetDefaultForUser(ctx, tx, rd.UserID)
      if gErr != nil {
        return fmt.Errorf("Failed to fetch seeded default prompt: %w", gErr)
      }
    }
    out = prompt
    return nil
  }); err != nil {
    return nil, err
  }
  return out, nil
}
