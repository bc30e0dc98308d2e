package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 30
	MinReasonLength      = 10
	MaxReasonLength      = 2000
	MinDescriptionLength = 1
	MaxDescriptionLength = 5000
	MaxProofRefLength    = 500
	MaxFeedbackLength    = 2000
	MaxDomainLength      = 50
	MaxSignatureLength   = 512
	MinAmount            = 0.0
	MaxAmount            = 100000000.0 // 100 миллионов
	MinGigDuration       = 15 * time.Minute
	MaxGigDuration       = 24 * time.Hour
)

var domainRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateAmount проверяет денежную сумму.
func ValidateAmount(fieldName string, amount float64) error {
	if amount <= MinAmount {
		return fmt.Errorf("%s должна быть положительной", fieldName)
	}
	if amount > MaxAmount {
		return fmt.Errorf("%s превышает максимально допустимую", fieldName)
	}
	return nil
}

// ValidateDomain проверяет тег специализации.
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("специализация обязательна")
	}
	if err := ValidateLength("специализация", domain, 1, MaxDomainLength); err != nil {
		return err
	}
	if !domainRegex.MatchString(domain) {
		return fmt.Errorf("специализация может содержать только строчные буквы, цифры, дефис и подчеркивание")
	}
	return nil
}

// ValidateGigWindow проверяет окно бронирования [start, end).
func ValidateGigWindow(start, end, now time.Time) error {
	if !start.Before(end) {
		return fmt.Errorf("начало окна должно быть раньше конца")
	}
	if end.Before(now) {
		return fmt.Errorf("окно бронирования не может быть целиком в прошлом")
	}
	dur := end.Sub(start)
	if dur < MinGigDuration {
		return fmt.Errorf("окно бронирования должно быть не короче %s", MinGigDuration)
	}
	if dur > MaxGigDuration {
		return fmt.Errorf("окно бронирования должно быть не длиннее %s", MaxGigDuration)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart, domainPart := parts[0], parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	fullDomainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !fullDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	if unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}
