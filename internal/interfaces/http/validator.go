package http

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"infinixai/internal/entities"
)

// Input validation constants
const (
	MaxUsernameLength    = 64
	MaxPasswordLength    = 128
	MaxCompanyNameLength = 256
	MaxProductNameLength = 256
	MaxTextFieldLength   = 5000
	MaxSettingLength     = 50000
	MaxChatMessageLength = 10000
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.@-]+$`)
	urlPattern      = regexp.MustCompile(`^https?://\S+$`)
	botTokenPattern = regexp.MustCompile(`^\d+:[\w-]+$`)
)

// ValidationError is returned for malformed dashboard input.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }
func (e ValidationError) ErrCode() string { return "VALIDATION_ERROR" }
func (e ValidationError) StatusCode() int { return http.StatusBadRequest }

type credentialsRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
}

func validateLogin(req credentialsRequest) error {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Username, validation.Required, validation.RuneLength(1, MaxUsernameLength)),
		validation.Field(&req.Password, validation.Required, validation.RuneLength(1, MaxPasswordLength)),
	)
	if err != nil {
		return ValidationError(err.Error())
	}
	return nil
}

func validateRegister(req credentialsRequest) error {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Username, validation.Required, validation.RuneLength(3, MaxUsernameLength), validation.Match(usernamePattern)),
		validation.Field(&req.Password, validation.Required, validation.RuneLength(6, MaxPasswordLength)),
		validation.Field(&req.CompanyName, validation.RuneLength(0, MaxCompanyNameLength)),
	)
	if err != nil {
		return ValidationError(err.Error())
	}
	return nil
}

func validateProduct(p entities.ProductEntry) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.RuneLength(1, MaxProductNameLength)),
		validation.Field(&p.Category, validation.RuneLength(0, MaxProductNameLength)),
		validation.Field(&p.Description, validation.RuneLength(0, MaxTextFieldLength)),
		validation.Field(&p.ImageURL, validation.Match(urlPattern)),
		validation.Field(&p.Price, validation.Min(0.0), validation.Max(entities.MaxProductPrice)),
	)
	if err != nil {
		return ValidationError(err.Error())
	}
	return nil
}

func validateSettings(input map[string]any) error {
	errs := validation.Errors{}
	for key, value := range input {
		if s, ok := value.(string); ok && utf8.RuneCountInString(s) > MaxSettingLength {
			errs[key] = validation.NewError("validation_length_too_long", "the length must be no more than 50000")
		}
	}
	if err := errs.Filter(); err != nil {
		return ValidationError(err.Error())
	}
	return nil
}

func validateTelegramToken(token string) error {
	err := validation.Validate(token, validation.Required, validation.Match(botTokenPattern))
	if err != nil {
		return ValidationError("token: " + err.Error())
	}
	return nil
}

// SanitizeString removes null bytes and invalid UTF-8.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return s
}

// TruncateString truncates s to at most maxLen runes.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}
