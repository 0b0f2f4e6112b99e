package models

// BodyID names one of the scene's bodies. It doubles as the storage key.
type BodyID string

const (
	BodyA BodyID = "modelA"
	BodyB BodyID = "modelB"
)

func (id BodyID) String() string { return string(id) }
