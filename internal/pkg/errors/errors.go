package errors

import "errors"

var (
	ErrInvalid      = errors.New("invalid")
	ErrNotFound     = errors.New("not found")
	ErrUnknownModel = errors.New("unknown model")
	ErrModelLoading = errors.New("model is loading")
	ErrNoEngine     = errors.New("no engine loaded")
	ErrInternal     = errors.New("internal")
)

func IsUnknownModel(err error) bool {
	return errors.Is(err, ErrUnknownModel)
}

func IsBusy(err error) bool {
	return errors.Is(err, ErrModelLoading) || errors.Is(err, ErrNoEngine)
}
