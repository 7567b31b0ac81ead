package main

import (
	"errors"
	"fmt"
)

var errMissingDSN = errors.New("postgres requires -db or DATABASE_URL")

func errUnknownDriver(driver string) error {
	return fmt.Errorf("unknown driver %q, use sqlite or postgres", driver)
}
