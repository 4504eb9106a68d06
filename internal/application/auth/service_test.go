package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/subfinder/api/internal/domain"
	jwtinfra "github.com/subfinder/api/internal/infrastructure/jwt"
	"github.com/subfinder/api/internal/infrastructure/smtp"
	"github.com/subfinder/api/internal/pkg/secret"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	args := m.Called(ctx, email, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) SetVerified(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockUserStore) SetPasswordHash(ctx context.Context, userID, hash string) error {
	return m.Called(ctx, userID, hash).Error(0)
}

// mailRecorder captures enqueued emails so tests can inspect links.
type mailRecorder struct {
	emails []smtp.Email
}

func (r *mailRecorder) Enqueue(e smtp.Email) { r.emails = append(r.emails, e) }

// --- builder ---

const testBcryptCost = 4

func newTestService(us *mockUserStore, mail *mailRecorder) (Service, *jwtinfra.Provider, *fakeResetTokenRepo) {
	issuer := jwtinfra.NewProvider("test-key", 72*time.Hour)
	repo := newFakeResetTokenRepo()
	return NewService(ServiceDeps{
		UserRepo:    us,
		ResetTokens: NewResetTokenManager(repo, testBcryptCost, time.Hour),
		TokenIssuer: issuer,
		Mail:        mail,
		Origin:      "http://localhost:3000",
		BcryptCost:  testBcryptCost,
	}), issuer, repo
}

func notFoundErr() error {
	return domain.ErrNotFound
}

// --- Register ---

func TestRegister_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	mail := &mailRecorder{}
	us.On("GetByEmailOrUsername", mock.Anything, "alice@x.com", "alice").Return(nil, notFoundErr())
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	svc, issuer, _ := newTestService(us, mail)
	u, err := svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "Alice", LastName: "Liddell", Username: "alice",
		Email: "alice@x.com", Password: "secret1",
	})

	require.NoError(t, err)
	assert.False(t, u.Verified)
	assert.NotEmpty(t, u.UserID)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.True(t, secret.Verify([]byte("secret1"), u.PasswordHash))

	require.Len(t, mail.emails, 1)
	assert.Equal(t, "alice@x.com", mail.emails[0].To)
	assert.Equal(t, "Account Verification Link", mail.emails[0].Subject)
	assert.Contains(t, mail.emails[0].Body, "/verify-email/"+u.UserID+"/")

	// The emailed token must verify and carry the account email.
	link := mail.emails[0].Body
	start := strings.Index(link, "/verify-email/"+u.UserID+"/") + len("/verify-email/"+u.UserID+"/")
	end := strings.IndexAny(link[start:], `"`)
	claims, err := issuer.Verify(link[start : start+end])
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", claims.Email)

	us.AssertExpectations(t)
}

func TestRegister_EmailCollision(t *testing.T) {
	us := &mockUserStore{}
	existing := &domain.User{Email: "alice@x.com", Username: "someoneelse"}
	us.On("GetByEmailOrUsername", mock.Anything, "alice@x.com", "alice").Return(existing, nil)

	svc, _, _ := newTestService(us, &mailRecorder{})
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "Alice", LastName: "Liddell", Username: "alice",
		Email: "alice@x.com", Password: "secret1",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Contains(t, err.Error(), "Email already exists")
	assert.NotContains(t, err.Error(), "Username")
}

func TestRegister_UsernameCollision(t *testing.T) {
	us := &mockUserStore{}
	existing := &domain.User{Email: "other@x.com", Username: "alice"}
	us.On("GetByEmailOrUsername", mock.Anything, "alice@x.com", "alice").Return(existing, nil)

	svc, _, _ := newTestService(us, &mailRecorder{})
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "Alice", LastName: "Liddell", Username: "alice",
		Email: "alice@x.com", Password: "secret1",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Contains(t, err.Error(), "Username already exists")
	assert.NotContains(t, err.Error(), "Email already exists")
}

func TestRegister_BothCollide(t *testing.T) {
	us := &mockUserStore{}
	existing := &domain.User{Email: "alice@x.com", Username: "alice"}
	us.On("GetByEmailOrUsername", mock.Anything, "alice@x.com", "alice").Return(existing, nil)

	svc, _, _ := newTestService(us, &mailRecorder{})
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "Alice", LastName: "Liddell", Username: "alice",
		Email: "alice@x.com", Password: "secret1",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email and Username already exists")
}

func TestRegister_CreateRaceSurfacesAsConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmailOrUsername", mock.Anything, "alice@x.com", "alice").Return(nil, notFoundErr())
	us.On("Put", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	svc, _, _ := newTestService(us, &mailRecorder{})
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "Alice", LastName: "Liddell", Username: "alice",
		Email: "alice@x.com", Password: "secret1",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

// --- VerifyEmail ---

func TestVerifyEmail_UnknownAccount(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(nil, notFoundErr())

	svc, _, _ := newTestService(us, &mailRecorder{})
	_, err := svc.VerifyEmail(context.Background(), "u1", "any")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyEmail_AlreadyVerifiedIsIdempotent(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Verified: true}, nil)

	svc, _, _ := newTestService(us, &mailRecorder{})
	msg, err := svc.VerifyEmail(context.Background(), "u1", "garbage")
	require.NoError(t, err)
	assert.Contains(t, msg, "already verified")
	us.AssertNotCalled(t, "SetVerified", mock.Anything, mock.Anything)
}

func TestVerifyEmail_InvalidToken(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)

	svc, _, _ := newTestService(us, &mailRecorder{})
	_, err := svc.VerifyEmail(context.Background(), "u1", "not-a-jwt")
	assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
}

func TestVerifyEmail_TokenForOtherEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)

	svc, issuer, _ := newTestService(us, &mailRecorder{})
	tok, err := issuer.IssueVerification("mallory@evil.com")
	require.NoError(t, err)

	_, err = svc.VerifyEmail(context.Background(), "u1", tok)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
}

func TestVerifyEmail_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)
	us.On("SetVerified", mock.Anything, "u1").Return(nil)

	svc, issuer, _ := newTestService(us, &mailRecorder{})
	tok, err := issuer.IssueVerification("a@b.com")
	require.NoError(t, err)

	msg, err := svc.VerifyEmail(context.Background(), "u1", tok)
	require.NoError(t, err)
	assert.Contains(t, msg, "verified successfully")
	us.AssertExpectations(t)
}

// --- Login ---

func TestLogin_UnknownEmailAndWrongPasswordShareMessage(t *testing.T) {
	hash, err := secret.Hash([]byte("rightpass"), testBcryptCost)
	require.NoError(t, err)

	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "missing@x.com").Return(nil, notFoundErr())
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", PasswordHash: hash, Verified: true,
	}, nil)

	svc, _, _ := newTestService(us, &mailRecorder{})

	_, _, errMissing := svc.Login(context.Background(), domain.LoginRequest{Email: "missing@x.com", Password: "whatever"})
	_, _, errWrongPw := svc.Login(context.Background(), domain.LoginRequest{Email: "alice@x.com", Password: "wrongpass"})

	require.Error(t, errMissing)
	require.Error(t, errWrongPw)
	assert.True(t, errors.Is(errMissing, domain.ErrInvalidCredential))
	assert.True(t, errors.Is(errWrongPw, domain.ErrInvalidCredential))
	assert.Equal(t, errMissing.Error(), errWrongPw.Error())
}

func TestLogin_UnverifiedRejectedBeforePasswordCheck(t *testing.T) {
	hash, err := secret.Hash([]byte("secret1"), testBcryptCost)
	require.NoError(t, err)

	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", PasswordHash: hash, Verified: false,
	}, nil)

	svc, _, _ := newTestService(us, &mailRecorder{})
	_, _, err = svc.Login(context.Background(), domain.LoginRequest{Email: "alice@x.com", Password: "secret1"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnverified))
}

func TestLogin_HappyPath(t *testing.T) {
	hash, err := secret.Hash([]byte("secret1"), testBcryptCost)
	require.NoError(t, err)

	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", PasswordHash: hash, Verified: true,
	}, nil)

	svc, issuer, _ := newTestService(us, &mailRecorder{})
	u, tok, err := svc.Login(context.Background(), domain.LoginRequest{Email: "alice@x.com", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", claims.Email)
	assert.Equal(t, "u1", claims.UserID)
}

// --- ForgotPassword / ResetPassword ---

func TestForgotPassword_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "missing@x.com").Return(nil, notFoundErr())

	svc, _, _ := newTestService(us, &mailRecorder{})
	err := svc.ForgotPassword(context.Background(), "missing@x.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestForgotPassword_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", Username: "alice", Verified: true,
	}, nil)

	mail := &mailRecorder{}
	svc, _, repo := newTestService(us, mail)
	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@x.com"))

	require.Len(t, mail.emails, 1)
	assert.Equal(t, "Reset password link", mail.emails[0].Subject)
	assert.Contains(t, mail.emails[0].Body, "/reset-password?token=")
	assert.Contains(t, mail.emails[0].Body, "email=alice@x.com")
	_, ok := repo.records["u1"]
	assert.True(t, ok)
}

func TestResetPassword_NoRecordDistinctFromWrongToken(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com",
	}, nil)

	svc, _, _ := newTestService(us, &mailRecorder{})
	_, err := svc.ResetPassword(context.Background(), domain.ResetPasswordRequest{
		Email: "alice@x.com", Token: "whatever", Password: "newsecret",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "go to forgot password first")
}

func TestResetPassword_WrongToken(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", Username: "alice",
	}, nil)

	mail := &mailRecorder{}
	svc, _, _ := newTestService(us, mail)
	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@x.com"))

	_, err := svc.ResetPassword(context.Background(), domain.ResetPasswordRequest{
		Email: "alice@x.com", Token: "0000000000000000000000000000000000000000000000000000000000000000", Password: "newsecret",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
}

func TestResetPassword_HappyPathConsumesToken(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", Username: "alice",
	}, nil)
	var storedHash string
	us.On("SetPasswordHash", mock.Anything, "u1", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { storedHash = args.String(2) }).Return(nil)

	mail := &mailRecorder{}
	svc, _, repo := newTestService(us, mail)
	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@x.com"))
	raw := rawTokenFromLink(t, mail.emails[0].Body)

	msg, err := svc.ResetPassword(context.Background(), domain.ResetPasswordRequest{
		Email: "alice@x.com", Token: raw, Password: "newsecret",
	})
	require.NoError(t, err)
	assert.Equal(t, "Password updated successfully.", msg)

	assert.True(t, secret.Verify([]byte("newsecret"), storedHash))
	assert.False(t, secret.Verify([]byte("oldsecret"), storedHash))

	// Record consumed, so the same token cannot validate a second time.
	_, ok := repo.records["u1"]
	assert.False(t, ok)
	_, err = svc.ResetPassword(context.Background(), domain.ResetPasswordRequest{
		Email: "alice@x.com", Token: raw, Password: "again",
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func rawTokenFromLink(t *testing.T, body string) string {
	t.Helper()
	start := strings.Index(body, "token=")
	require.GreaterOrEqual(t, start, 0)
	start += len("token=")
	end := strings.Index(body[start:], "&")
	require.GreaterOrEqual(t, end, 0)
	return body[start : start+end]
}
