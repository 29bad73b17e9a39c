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

type UserService interface {
  GetMe(ctx context.Context) (*types.User, error)
  UpdateDisplayName(ctx context.Context, displayName string) (*types.User, error)
}

type userService struct {
  db        *gorm.DB
  log       *logger.Logger
  userRepo  repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
  serviceLog := log.With("service", "UserService")
  return &userService{db: db, log: serviceLog, userRepo: userRepo}
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    us.log.Warn("Request data not set in context")
    return nil, fmt.Errorf("Request data not set in context")
  }
  if rd.UserID == uuid.Nil {
    us.log.Warn("User id not set in request data")
    return nil, fmt.Errorf("User id not set in request data")
  }
  found, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
  if err != nil {
    return nil, fmt.Errorf("Error fetching user: %w", err)
  }
  if len(found) == 0 || found[0] == nil {
    return nil, fmt.Errorf("User does not exist")
  }
  return found[0], nil
}

func (us *userService) UpdateDisplayName(ctx context.Context, displayName string) (*types.User, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("Unauthorized")
  }
  displayName = strings.TrimSpace(displayName)
  if displayName == "" {
    return nil, fmt.Errorf("display_name required")
  }

  var out *types.User
  if err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    found, gErr := us.userRepo.GetByIDs(ctx, tx, []uuid.UUID{rd.UserID})
    if gErr != nil || len(found) == 0 || found[0] == nil {
      return fmt.Errorf("User not found")
    }
    user := found[0]
    user.DisplayName = displayName
    if uErr := us.userRepo.UpdateDisplayName(ctx, tx, rd.UserID, displayName); uErr != nil {
      return uErr
    }
    out = user
    return nil
  }); err != nil {
    return nil, err
  }
  return out, nil
}
