package spec

import "errors"

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSkillNotFound      = errors.New("skill not found")
	ErrSkillAlreadyExists = errors.New("skill already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNoActiveSkill      = errors.New("no active skill")
	ErrSlotNotFound       = errors.New("slot not found")

	// ErrPropagationDepth is returned when slot-change propagation exceeds
	// the per-turn step bound (a handler cycle).
	ErrPropagationDepth = errors.New("slot propagation depth exceeded")
)
