package ilroundtrip

import (
	"errors"

	"github.com/lateralusd/ilroundtrip/internal/pe"
)

var (
	ErrInputNotFound   = errors.New("input image does not exist")
	ErrNotManagedImage = pe.ErrNotManaged
	ErrBadMachine      = pe.ErrBadMachine
)
