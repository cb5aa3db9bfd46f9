package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Freeeeeet/office_hours/internal/apperr"
	"github.com/Freeeeeet/office_hours/internal/model"
)

// DirectoryService exposes the read side of students, faculty and departments.
type DirectoryService struct {
	repo   DirectoryRepository
	logger *zap.Logger
}

// NewDirectoryService wraps the directory repository.
func NewDirectoryService(repo DirectoryRepository, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{repo: repo, logger: logger}
}

// GetStudent returns the student or ErrStudentNotFound.
func (s *DirectoryService) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	student, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, apperr.ErrStudentNotFound
	}
	return student, nil
}

// GetFaculty returns the faculty member or ErrFacultyNotFound.
func (s *DirectoryService) GetFaculty(ctx context.Context, id int64) (*model.Faculty, error) {
	faculty, err := s.repo.GetFaculty(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get faculty: %w", err)
	}
	if faculty == nil {
		return nil, apperr.ErrFacultyNotFound
	}
	return faculty, nil
}

// ListFaculty returns all faculty members, or those of one department.
func (s *DirectoryService) ListFaculty(ctx context.Context, departmentID *int64) ([]*model.Faculty, error) {
	return s.repo.ListFaculty(ctx, departmentID)
}

func (s *DirectoryService) ListDepartments(ctx context.Context) ([]*model.Department, error) {
	return s.repo.ListDepartments(ctx)
}

// ResolveTelegramActor maps a linked chat to the student or faculty profile behind it.
func (s *DirectoryService) ResolveTelegramActor(ctx context.Context, chatID int64) (Actor, error) {
	user, err := s.repo.GetUserByTelegramChatID(ctx, chatID)
	if err != nil {
		return Actor{}, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return Actor{}, apperr.ErrForbidden
	}

	switch user.Role {
	case model.RoleStudent:
		student, err := s.repo.GetStudentByUserID(ctx, user.ID)
		if err != nil {
			return Actor{}, fmt.Errorf("get student: %w", err)
		}
		if student == nil {
			return Actor{}, apperr.ErrStudentNotFound
		}
		return StudentActor(student.ID), nil
	case model.RoleFaculty:
		faculty, err := s.repo.GetFacultyByUserID(ctx, user.ID)
		if err != nil {
			return Actor{}, fmt.Errorf("get faculty: %w", err)
		}
		if faculty == nil {
			return Actor{}, apperr.ErrFacultyNotFound
		}
		return FacultyActor(faculty.ID), nil
	default:
		return Actor{}, apperr.ErrForbidden
	}
}

// LinkTelegram attaches a chat id to the user so notifications can reach it.
func (s *DirectoryService) LinkTelegram(ctx context.Context, userID, chatID int64) error {
	ok, err := s.repo.SetTelegramChatID(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrUserNotFound
	}

	s.logger.Info("Telegram chat linked",
		zap.Int64("user_id", userID),
		zap.Int64("chat_id", chatID),
	)
	return nil
}
