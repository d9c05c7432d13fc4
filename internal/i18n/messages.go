// Package i18n turns error codes into user-facing messages.
package i18n

import (
	"errors"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/validation"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const codeUnknown = "unknown"

// Supported lists the available languages; the first one is the fallback.
var Supported = []language.Tag{language.BrazilianPortuguese, language.English}

var (
	matcher = language.NewMatcher(Supported)
	builder = catalog.NewBuilder(catalog.Fallback(language.BrazilianPortuguese))
)

var translations = map[string]map[language.Tag]string{
	apperrors.CodeUserNotFound: {
		language.BrazilianPortuguese: "Usuário não existe",
		language.English:             "User does not exist",
	},
	apperrors.CodeWrongPassword: {
		language.BrazilianPortuguese: "Senha incorreta",
		language.English:             "Wrong password",
	},
	apperrors.CodeEmailInUse: {
		language.BrazilianPortuguese: "E-mail já em uso",
		language.English:             "Email already in use",
	},
	apperrors.CodeInvalidEmail: {
		language.BrazilianPortuguese: "E-mail inválido",
		language.English:             "Invalid email",
	},
	apperrors.CodeWeakPassword: {
		language.BrazilianPortuguese: "Senha muito fraca",
		language.English:             "Password is too weak",
	},
	apperrors.CodeInvalidToken: {
		language.BrazilianPortuguese: "Sessão inválida, entre novamente",
		language.English:             "Invalid session, please sign in again",
	},
	apperrors.CodeSessionRevoked: {
		language.BrazilianPortuguese: "Sessão encerrada",
		language.English:             "Session has ended",
	},
	apperrors.CodeInvalidActionCode: {
		language.BrazilianPortuguese: "Código de redefinição inválido",
		language.English:             "Invalid reset code",
	},
	apperrors.CodeExpiredActionCode: {
		language.BrazilianPortuguese: "Código de redefinição expirado",
		language.English:             "Reset code has expired",
	},
	validation.CodeRequired: {
		language.BrazilianPortuguese: "Campo obrigatório",
		language.English:             "Required field",
	},
	validation.CodeInvalidEmail: {
		language.BrazilianPortuguese: "E-mail inválido",
		language.English:             "Invalid email",
	},
	validation.CodeTooShort: {
		language.BrazilianPortuguese: "Mínimo 8 caractéres",
		language.English:             "At least 8 characters",
	},
	validation.CodeInvalidUsername: {
		language.BrazilianPortuguese: "Use de 3 a 20 letras minúsculas, números ou hífens",
		language.English:             "Use 3 to 20 lowercase letters, digits or hyphens",
	},
	validation.CodeAvatarRequired: {
		language.BrazilianPortuguese: "Por favor, selecione uma imagem.",
		language.English:             "Please select an image.",
	},
	validation.CodePasswordMismatch: {
		language.BrazilianPortuguese: "As senhas devem ser iguais",
		language.English:             "Passwords must match",
	},
	codeUnknown: {
		language.BrazilianPortuguese: "Algo deu errado, tente novamente mais tarde",
		language.English:             "Something went wrong, please try again later",
	},
}

func init() {
	for key, byLang := range translations {
		for tag, msg := range byLang {
			if err := builder.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
}

// Match picks the best supported language for an Accept-Language header.
func Match(acceptLanguage string) language.Tag {
	_, idx := language.MatchStrings(matcher, acceptLanguage)
	return Supported[idx]
}

// Translate returns the localized message for code, or "" when the code is unknown.
func Translate(tag language.Tag, code string) string {
	if _, ok := translations[code]; !ok {
		return ""
	}
	return message.NewPrinter(tag, message.Catalog(builder)).Sprintf(code)
}

// Message renders err for a user. Auth errors and validation failures are
// translated by code; other application errors keep their own message and
// anything else becomes a generic failure.
func Message(tag language.Tag, err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		if msg := Translate(tag, appErr.Code); msg != "" {
			return msg
		}
		return appErr.Message
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return Translate(tag, fieldErrs[0].Code)
	}

	return Translate(tag, codeUnknown)
}

// FieldMessages translates every field error, keeping the first failure per field.
func FieldMessages(tag language.Tag, errs validation.Errors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		if _, seen := out[fe.Field]; seen {
			continue
		}
		out[fe.Field] = Translate(tag, fe.Code)
	}
	return out
}
