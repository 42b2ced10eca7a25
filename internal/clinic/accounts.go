package clinic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clinic-booking/internal/auth"
	"clinic-booking/internal/model"
	"clinic-booking/internal/store"
)

type AccountRepository interface {
	CreateAccount(ctx context.Context, a *model.Account) error
	AccountByID(ctx context.Context, id string) (*model.Account, error)
	AccountByUsername(ctx context.Context, username string) (*model.Account, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	ListProviders(ctx context.Context) ([]model.Account, error)
}

type Accounts struct {
	repo AccountRepository
}

func NewAccounts(repo AccountRepository) *Accounts {
	return &Accounts{repo: repo}
}

type Registration struct {
	Username  string
	Email     string
	Password  string
	Role      model.Role
	Specialty string
}

const minPasswordLen = 8

// Register creates an account and returns its id.
func (s *Accounts) Register(ctx context.Context, in Registration) (string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Specialty = strings.TrimSpace(in.Specialty)

	if in.Username == "" || in.Email == "" || in.Password == "" {
		return "", fail(ErrValidation, "Username, email and password are required")
	}
	if taken, err := s.repo.UsernameTaken(ctx, in.Username); err != nil {
		return "", err
	} else if taken {
		return "", fail(ErrDuplicateIdentity, "Username already exists")
	}
	if taken, err := s.repo.EmailTaken(ctx, in.Email); err != nil {
		return "", err
	} else if taken {
		return "", fail(ErrDuplicateIdentity, "Email already exists")
	}

	if len(in.Password) < minPasswordLen {
		return "", fail(ErrValidation, "Password must be at least %d characters", minPasswordLen)
	}
	switch in.Role {
	case model.RoleProvider:
		if in.Specialty == "" {
			return "", fail(ErrInvalidRole, "Providers must have a specialty")
		}
	case model.RolePatient:
		in.Specialty = ""
	default:
		return "", fail(ErrInvalidRole, "Unknown role %q", in.Role)
	}

	hash, err := auth.HashPassword(in.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", fail(ErrValidation, "Password must be at most 72 bytes")
	}
	if err != nil {
		return "", err
	}
	a := &model.Account{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Specialty:    in.Specialty,
	}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		// unique index caught a concurrent registration
		if errors.Is(err, store.ErrDuplicate) {
			return "", fail(ErrDuplicateIdentity, "Username or email already exists")
		}
		return "", err
	}

	zerolog.Ctx(ctx).Info().Str("account_id", a.ID).Str("role", string(a.Role)).Msg("account registered")
	return a.ID, nil
}

func (s *Accounts) Authenticate(ctx context.Context, username, password string) (*model.Account, error) {
	a, err := s.repo.AccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fail(ErrInvalidCredentials, "Invalid username or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(a.PasswordHash, password) {
		return nil, fail(ErrInvalidCredentials, "Invalid username or password")
	}
	return a, nil
}

func (s *Accounts) Get(ctx context.Context, id string) (*model.Account, error) {
	a, err := s.repo.AccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrNotFound, "No such account")
	}
	return a, err
}

// Usernames maps each id to its username. Unknown ids are left out.
func (s *Accounts) Usernames(ctx context.Context, ids ...string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		a, err := s.repo.AccountByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = a.Username
	}
	return out, nil
}

// Parties returns the usernames of everyone named on the given requests.
func (s *Accounts) Parties(ctx context.Context, appts []model.Appointment, calls []model.VideoCall) (map[string]string, error) {
	ids := make([]string, 0, 2*(len(appts)+len(calls)))
	for _, a := range appts {
		ids = append(ids, a.PatientID, a.ProviderID)
	}
	for _, c := range calls {
		ids = append(ids, c.PatientID, c.ProviderID)
	}
	return s.Usernames(ctx, ids...)
}

func (s *Accounts) Providers(ctx context.Context) ([]model.Account, error) {
	return s.repo.ListProviders(ctx)
}

// Specialties returns the sorted, de-duplicated provider specialties.
func Specialties(providers []model.Account) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range providers {
		if p.Specialty != "" && !seen[p.Specialty] {
			seen[p.Specialty] = true
			out = append(out, p.Specialty)
		}
	}
	sort.Strings(out)
	return out
}

// provider loads id and checks it is a provider account.
func (s *Accounts) provider(ctx context.Context, id string) (*model.Account, error) {
	a, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fail(ErrValidation, "Unknown provider")
	}
	if err != nil {
		return nil, err
	}
	if !a.IsProvider() {
		return nil, fail(ErrValidation, "Selected account is not a provider")
	}
	return a, nil
}

var sampleProviders = []struct{ username, email, specialty string }{
	{"dr_smith", "dr.smith@dentalcare.com", "General Dentistry"},
	{"dr_johnson", "dr.johnson@dentalcare.com", "Orthodontics"},
	{"dr_williams", "dr.williams@dentalcare.com", "Periodontics"},
	{"dr_brown", "dr.brown@dentalcare.com", "Endodontics"},
	{"dr_davis", "dr.davis@dentalcare.com", "Oral Surgery"},
	{"dr_miller", "dr.miller@dentalcare.com", "Pediatric Dentistry"},
}

// SeedProviders inserts the sample providers when no provider exists yet.
// The operator supplies the password; there is no built-in default.
func (s *Accounts) SeedProviders(ctx context.Context, password string) (int, error) {
	if password == "" {
		return 0, fail(ErrValidation, "Seed password is required")
	}
	existing, err := s.repo.ListProviders(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	n := 0
	for _, p := range sampleProviders {
		_, err := s.Register(ctx, Registration{
			Username:  p.username,
			Email:     p.email,
			Password:  password,
			Role:      model.RoleProvider,
			Specialty: p.specialty,
		})
		if err != nil {
			return n, fmt.Errorf("seed %s: %w", p.username, err)
		}
		n++
	}
	return n, nil
}
