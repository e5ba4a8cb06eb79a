package flows

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateContact checks an address against the channel's format.
func validateContact(ch Channel, contact string) error {
	tag := "required,email"
	if ch == ChannelPhone {
		tag = "required,e164"
	}
	if err := validate.Var(contact, tag); err != nil {
		return fmt.Errorf("%s: %s", channelField(ch), describe(err))
	}
	return nil
}

func channelField(ch Channel) string {
	if ch == ChannelPhone {
		return "phone"
	}
	return "email"
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	switch verrs[0].Tag() {
	case "required":
		return "is required"
	case "email":
		return "is not a valid email address"
	case "e164":
		return "must be in E.164 format"
	default:
		return "failed " + verrs[0].Tag()
	}
}
