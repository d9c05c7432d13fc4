package i18n

import (
	"errors"
	"testing"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/validation"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMatch(t *testing.T) {
	assert.Equal(t, language.English, Match("en-US,en;q=0.9"))
	assert.Equal(t, language.BrazilianPortuguese, Match("pt-BR"))
	assert.Equal(t, language.BrazilianPortuguese, Match(""))
	assert.Equal(t, language.BrazilianPortuguese, Match("fr-FR"))
}

func TestMessage_AuthErrorIsTranslated(t *testing.T) {
	err := apperrors.Auth(apperrors.CodeWrongPassword, "invalid credentials")

	assert.Equal(t, "Senha incorreta", Message(language.BrazilianPortuguese, err))
	assert.Equal(t, "Wrong password", Message(language.English, err))
}

func TestMessage_WrappedErrorKeepsOwnMessage(t *testing.T) {
	err := apperrors.NotFound("User with username %s not found", "ghost")

	assert.Equal(t, "User with username ghost not found", Message(language.English, err))
}

func TestMessage_UnknownErrorIsGeneric(t *testing.T) {
	assert.Equal(t, "Algo deu errado, tente novamente mais tarde",
		Message(language.BrazilianPortuguese, errors.New("boom")))
}

func TestFieldMessages(t *testing.T) {
	err := validation.ValidateSignUp(validation.SignUpInput{
		Email:           "bad",
		Password:        "s3cret-pass",
		PasswordConfirm: "s3cret-pass",
		Username:        "bob",
		DisplayName:     "Bob",
		HasAvatar:       true,
	})

	var errs validation.Errors
	if assert.True(t, errors.As(err, &errs)) {
		msgs := FieldMessages(language.English, errs)
		assert.Equal(t, map[string]string{"email": "Invalid email"}, msgs)
		assert.Equal(t, "Invalid email", Message(language.English, err))
	}
}

func TestFieldMessages_AvatarRequired(t *testing.T) {
	errs := validation.Errors{{Field: "avatar", Code: validation.CodeAvatarRequired}}
	assert.Equal(t, map[string]string{"avatar": "Por favor, selecione uma imagem."},
		FieldMessages(language.BrazilianPortuguese, errs))
}
