package model

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID                              int64     `json:"id"`
	Email                           string    `json:"email"`
	Nome                            string    `json:"nome"`
	Sobrenome                       string    `json:"sobrenome"`
	CPF                             string    `json:"cpf"`
	Telefone                        string    `json:"telefone"`
	Nascimento                      string    `json:"nascimento"`
	Password                        string    `json:"-"`
	AuthProvider                    string    `json:"auth_provider,omitempty"`
	APIToken                        string    `json:"-"`
	ProfileImage                    string    `json:"profile_image"`
	Preferences                     string    `json:"preferences"`
	LoginCount                      int       `json:"login_count"`
	LastLoginAt                     NullTime  `json:"last_login_at"`
	LastLoginIP                     string    `json:"last_login_ip"`
	IsEmailVerified                 bool      `json:"is_email_verified"`
	EmailVerificationToken          string    `json:"-"`
	EmailVerificationTokenExpiresAt time.Time `json:"-"`
	PasswordResetToken              string    `json:"-"`
	PasswordResetTokenExpiresAt     time.Time `json:"-"`
	MfaSecret                       string    `json:"-"`
	MfaEnabled                      bool      `json:"mfa_enabled"`
	CreatedAt                       time.Time `json:"created_at"`
	UpdatedAt                       time.Time `json:"updated_at"`
}

// NullTime is an alias for sql.NullTime for better JSON handling.
type NullTime sql.NullTime

func (nt NullTime) MarshalJSON() ([]byte, error) {
	if !nt.Valid {
		return []byte("null"), nil
	}
	return nt.Time.MarshalJSON()
}

func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// FullName devolve o nome de exibição do utilizador.
func (u *User) FullName() string {
	if u.Sobrenome == "" {
		return u.Nome
	}
	return u.Nome + " " + u.Sobrenome
}

const userColumns = `id, email, nome, sobrenome, cpf, telefone, nascimento, password, auth_provider,
       api_token, profile_image, preferences, login_count, last_login_at, last_login_ip,
       is_email_verified, email_verification_token, email_verification_token_expires_at,
       password_reset_token, password_reset_token_expires_at, mfa_secret, mfa_enabled,
       created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var user User
	var lastLoginAt, emailVerificationTokenExpiresAt, passwordResetTokenExpiresAt sql.NullTime
	var emailVerificationToken, passwordResetToken, mfaSecret sql.NullString

	err := row.Scan(
		&user.ID, &user.Email, &user.Nome, &user.Sobrenome, &user.CPF,
		&user.Telefone, &user.Nascimento, &user.Password, &user.AuthProvider,
		&user.APIToken, &user.ProfileImage, &user.Preferences,
		&user.LoginCount, &lastLoginAt, &user.LastLoginIP,
		&user.IsEmailVerified, &emailVerificationToken, &emailVerificationTokenExpiresAt,
		&passwordResetToken, &passwordResetTokenExpiresAt,
		&mfaSecret, &user.MfaEnabled,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.LastLoginAt = NullTime(lastLoginAt)
	user.EmailVerificationToken = emailVerificationToken.String
	user.EmailVerificationTokenExpiresAt = emailVerificationTokenExpiresAt.Time
	user.PasswordResetToken = passwordResetToken.String
	user.PasswordResetTokenExpiresAt = passwordResetTokenExpiresAt.Time
	user.MfaSecret = mfaSecret.String

	return &user, nil
}

func (u *User) CreateUser(db *sql.DB) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.AuthProvider == "" {
		u.AuthProvider = "local"
	}

	query := `
	INSERT INTO users (email, nome, sobrenome, cpf, telefone, nascimento, password, auth_provider,
	                   api_token, profile_image, preferences, is_email_verified,
	                   email_verification_token, email_verification_token_expires_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var emailTokenExpiresArg interface{}
	if u.EmailVerificationTokenExpiresAt.IsZero() {
		emailTokenExpiresArg = nil
	} else {
		emailTokenExpiresArg = u.EmailVerificationTokenExpiresAt
	}

	res, err := stmt.Exec(
		u.Email,
		u.Nome,
		u.Sobrenome,
		u.CPF,
		u.Telefone,
		u.Nascimento,
		u.Password,
		u.AuthProvider,
		u.APIToken,
		u.ProfileImage,
		u.Preferences,
		u.IsEmailVerified,
		u.EmailVerificationToken,
		emailTokenExpiresArg,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func GetUserByID(db *sql.DB, id int64) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return user, nil
}

func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return user, nil
}

func GetUserByCPF(db *sql.DB, cpf string) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE cpf = ?`, cpf)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return user, nil
}

func GetUserByVerificationToken(db *sql.DB, token string) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email_verification_token = ?`, token)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("invalid or expired verification token")
		}
		return nil, err
	}
	return user, nil
}

func GetUserByPasswordResetToken(db *sql.DB, token string) (*User, error) {
	row := db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE password_reset_token = ? AND password_reset_token_expires_at > ?`,
		token, time.Now())
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("invalid or expired password reset token")
		}
		return nil, err
	}
	return user, nil
}

func (u *User) UpdateUserVerificationStatus(db *sql.DB, isVerified bool) error {
	u.IsEmailVerified = isVerified
	u.EmailVerificationToken = ""
	u.EmailVerificationTokenExpiresAt = time.Time{}
	u.UpdatedAt = time.Now()

	query := `
	UPDATE users
	SET is_email_verified = ?, email_verification_token = NULL, email_verification_token_expires_at = NULL, updated_at = ?
	WHERE id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(u.IsEmailVerified, u.UpdatedAt, u.ID)
	return err
}

func (u *User) UpdateUserVerificationToken(db *sql.DB, token string, expiresAt time.Time) error {
	u.EmailVerificationToken = token
	u.EmailVerificationTokenExpiresAt = expiresAt
	u.UpdatedAt = time.Now()

	query := `
	UPDATE users
	SET email_verification_token = ?, email_verification_token_expires_at = ?, updated_at = ?
	WHERE id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(u.EmailVerificationToken, u.EmailVerificationTokenExpiresAt, u.UpdatedAt, u.ID)
	return err
}

func (u *User) SetPasswordResetToken(db *sql.DB, token string, expiresAt time.Time) error {
	u.PasswordResetToken = token
	u.PasswordResetTokenExpiresAt = expiresAt
	u.UpdatedAt = time.Now()

	var query string
	var args []interface{}

	if token == "" {
		query = `
		UPDATE users
		SET password_reset_token = NULL, password_reset_token_expires_at = NULL, updated_at = ?
		WHERE id = ?`
		args = []interface{}{u.UpdatedAt, u.ID}
	} else {
		query = `
		UPDATE users
		SET password_reset_token = ?, password_reset_token_expires_at = ?, updated_at = ?
		WHERE id = ?`
		args = []interface{}{u.PasswordResetToken, u.PasswordResetTokenExpiresAt, u.UpdatedAt, u.ID}
	}

	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(args...)
	return err
}

func (u *User) UpdatePassword(db *sql.DB, newPasswordHash string) error {
	u.Password = newPasswordHash
	u.PasswordResetToken = ""
	u.PasswordResetTokenExpiresAt = time.Time{}
	u.UpdatedAt = time.Now()

	query := `
	UPDATE users
	SET password = ?, password_reset_token = NULL, password_reset_token_expires_at = NULL, updated_at = ?
	WHERE id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(u.Password, u.UpdatedAt, u.ID)
	return err
}

// UpdateProfile persiste os campos editáveis do perfil, incluindo o token
// da corretora.
func (u *User) UpdateProfile(db *sql.DB) error {
	u.UpdatedAt = time.Now()

	query := `
	UPDATE users
	SET nome = ?, sobrenome = ?, telefone = ?, nascimento = ?, api_token = ?, updated_at = ?
	WHERE id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(u.Nome, u.Sobrenome, u.Telefone, u.Nascimento, u.APIToken, u.UpdatedAt, u.ID)
	return err
}

func (u *User) UpdateProfileImage(db *sql.DB, imagePath string) error {
	u.ProfileImage = imagePath
	u.UpdatedAt = time.Now()

	query := `
	UPDATE users
	SET profile_image = ?, updated_at = ?
	WHERE id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(u.ProfileImage, u.UpdatedAt, u.ID)
	return err
}

// UpdatePreferences guarda o JSON de preferências tal como o cliente o envia.
func (u *User) UpdatePreferences(db *sql.DB, preferences string) error {
	u.Preferences = preferences
	u.UpdatedAt = time.Now()

	query := `
	UPDATE users
	SET preferences = ?, updated_at = ?
	WHERE id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(u.Preferences, u.UpdatedAt, u.ID)
	return err
}

// RecordLogin atualiza os contadores de sessão do utilizador e acrescenta
// uma linha ao histórico de logins.
func (u *User) RecordLogin(db *sql.DB, clientIP, userAgent string) error {
	now := time.Now()
	u.LoginCount++
	u.LastLoginAt = NullTime{Time: now, Valid: true}
	u.LastLoginIP = clientIP
	u.UpdatedAt = now

	query := `
	UPDATE users
	SET login_count = ?, last_login_at = ?, last_login_ip = ?, updated_at = ?
	WHERE id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err = stmt.Exec(u.LoginCount, now, u.LastLoginIP, u.UpdatedAt, u.ID); err != nil {
		return err
	}

	_, err = db.Exec(
		`INSERT INTO login_history (user_id, ip_address, user_agent, login_at) VALUES (?, ?, ?, ?)`,
		u.ID, clientIP, userAgent, now)
	return err
}

// UpdateMfaSecret guarda o segredo TOTP temporariamente (ou permanentemente).
func (u *User) UpdateMfaSecret(db *sql.DB, secret string) error {
	u.MfaSecret = secret
	u.UpdatedAt = time.Now()

	query := `
	UPDATE users
	SET mfa_secret = ?, updated_at = ?
	WHERE id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(u.MfaSecret, u.UpdatedAt, u.ID)
	return err
}

// UpdateMfaEnabled ativa ou desativa o MFA.
func (u *User) UpdateMfaEnabled(db *sql.DB, enabled bool) error {
	u.MfaEnabled = enabled
	u.UpdatedAt = time.Now()

	query := `
	UPDATE users
	SET mfa_enabled = ?, updated_at = ?
	WHERE id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(u.MfaEnabled, u.UpdatedAt, u.ID)
	return err
}

// CountUsers devolve o total de utilizadores registados.
func CountUsers(db *sql.DB) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CountVerifiedUsers devolve o total de utilizadores com email verificado.
func CountVerifiedUsers(db *sql.DB) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE is_email_verified = 1`).Scan(&count)
	return count, err
}
