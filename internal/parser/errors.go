package parser

import "errors"

var (
	ErrUnknownLanguage = errors.New("unknown language")
	ErrNoTree          = errors.New("no parsed tree available")
	ErrCancelled       = errors.New("parse cancelled")
)
