package toml

import (
	"fmt"

	"github.com/bnema/bncbot/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version int               `toml:"version"`
	Queue   map[string]string `toml:"queue"`
	Users   map[string]string `toml:"users"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
	if s.Queue == nil {
		s.Queue = map[string]string{}
	}
	if s.Users == nil {
		s.Users = map[string]string{}
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported state schema version %d (current %d)", s.Version, currentSchemaVersion)
	}
	return nil
}

func toSchema(state domain.State) fileSchema {
	file := fileSchema{
		Version: currentSchemaVersion,
		Queue:   make(map[string]string, len(state.Queue)),
		Users:   make(map[string]string, len(state.Users)),
	}
	for k, v := range state.Queue {
		file.Queue[k] = v
	}
	for k, v := range state.Users {
		file.Users[k] = v
	}
	return file
}

func fromSchema(file fileSchema) domain.State {
	state := domain.NewState()
	for k, v := range file.Queue {
		state.Queue[k] = v
	}
	for k, v := range file.Users {
		state.Users[k] = v
	}
	return state
}
