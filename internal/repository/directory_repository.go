package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository/base"
)

// DirectoryRepository reads students, faculty, departments and their user accounts.
type DirectoryRepository struct {
	*base.Repository
}

// NewDirectoryRepository binds the repository to a pool or a transaction.
func NewDirectoryRepository(db base.DBTX) *DirectoryRepository {
	return &DirectoryRepository{Repository: base.NewRepository(db)}
}

const studentQuery = `
	SELECT s.id, s.user_id, s.name, s.registration_number, s.course, s.branch,
	       s.current_year, s.current_semester, s.phone_number, s.created_at,
	       u.email, u.telegram_chat_id
	FROM students s
	JOIN users u ON u.id = s.user_id
`

const facultyQuery = `
	SELECT f.id, f.user_id, f.faculty_code, f.name, f.phone_number, f.department_id, f.created_at,
	       u.email, u.telegram_chat_id
	FROM faculty f
	JOIN users u ON u.id = f.user_id
`

func (r *DirectoryRepository) getStudent(ctx context.Context, query string, arg int64) (*model.Student, error) {
	var s model.Student
	err := r.QueryRow(ctx, query, arg).Scan(
		&s.ID,
		&s.UserID,
		&s.Name,
		&s.RegistrationNumber,
		&s.Course,
		&s.Branch,
		&s.CurrentYear,
		&s.CurrentSemester,
		&s.PhoneNumber,
		&s.CreatedAt,
		&s.Email,
		&s.TelegramChatID,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &s, nil
}

// GetStudent returns the student with the account email and telegram chat.
func (r *DirectoryRepository) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	return r.getStudent(ctx, studentQuery+` WHERE s.id = $1`, id)
}

// LockStudent reads the student and holds its row lock until the transaction ends.
// Bookings by the same student serialise on this lock.
func (r *DirectoryRepository) LockStudent(ctx context.Context, id int64) (*model.Student, error) {
	return r.getStudent(ctx, studentQuery+` WHERE s.id = $1 FOR UPDATE OF s`, id)
}

func (r *DirectoryRepository) GetStudentByUserID(ctx context.Context, userID int64) (*model.Student, error) {
	return r.getStudent(ctx, studentQuery+` WHERE s.user_id = $1`, userID)
}

func scanFaculty(row interface{ Scan(...any) error }) (*model.Faculty, error) {
	var f model.Faculty
	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.FacultyCode,
		&f.Name,
		&f.PhoneNumber,
		&f.DepartmentID,
		&f.CreatedAt,
		&f.Email,
		&f.TelegramChatID,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *DirectoryRepository) getFaculty(ctx context.Context, query string, arg int64) (*model.Faculty, error) {
	f, err := scanFaculty(r.QueryRow(ctx, query, arg))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get faculty: %w", err)
	}
	return f, nil
}

// GetFaculty returns the faculty member with the account email and telegram chat.
func (r *DirectoryRepository) GetFaculty(ctx context.Context, id int64) (*model.Faculty, error) {
	return r.getFaculty(ctx, facultyQuery+` WHERE f.id = $1`, id)
}

// LockFaculty serialises slot declarations of one faculty member.
func (r *DirectoryRepository) LockFaculty(ctx context.Context, id int64) (*model.Faculty, error) {
	return r.getFaculty(ctx, facultyQuery+` WHERE f.id = $1 FOR UPDATE OF f`, id)
}

func (r *DirectoryRepository) GetFacultyByUserID(ctx context.Context, userID int64) (*model.Faculty, error) {
	return r.getFaculty(ctx, facultyQuery+` WHERE f.user_id = $1`, userID)
}

// ListFaculty returns all faculty, or those of one department when departmentID is set.
func (r *DirectoryRepository) ListFaculty(ctx context.Context, departmentID *int64) ([]*model.Faculty, error) {
	query := facultyQuery + `
		WHERE ($1::BIGINT IS NULL OR f.department_id = $1)
		ORDER BY f.name
	`

	rows, err := r.Query(ctx, query, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	defer rows.Close()

	var list []*model.Faculty
	for rows.Next() {
		f, err := scanFaculty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan faculty: %w", err)
		}
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faculty: %w", err)
	}

	return list, nil
}

func (r *DirectoryRepository) ListDepartments(ctx context.Context) ([]*model.Department, error) {
	rows, err := r.Query(ctx, `SELECT id, name, code, description, created_at FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var list []*model.Department
	for rows.Next() {
		var d model.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		list = append(list, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", err)
	}

	return list, nil
}

// GetUserByTelegramChatID returns nil, nil when no account is linked to the chat.
func (r *DirectoryRepository) GetUserByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error) {
	query := `
		SELECT id, email, role, is_verified, telegram_chat_id, created_at
		FROM users
		WHERE telegram_chat_id = $1
	`

	var u model.User
	err := r.QueryRow(ctx, query, chatID).Scan(
		&u.ID,
		&u.Email,
		&u.Role,
		&u.IsVerified,
		&u.TelegramChatID,
		&u.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by telegram chat id: %w", err)
	}

	return &u, nil
}

// SetTelegramChatID links a chat to the user. It returns false when the user does not exist.
func (r *DirectoryRepository) SetTelegramChatID(ctx context.Context, userID, chatID int64) (bool, error) {
	affected, err := r.ExecAffected(ctx, `UPDATE users SET telegram_chat_id = $2 WHERE id = $1`, userID, chatID)
	if err != nil {
		return false, fmt.Errorf("set telegram chat id: %w", err)
	}
	return affected == 1, nil
}
