package ir

// Version constants for the engine and its persisted formats.
const (
	// EngineVersion is the puzzlebox engine version.
	EngineVersion = "0.1.0"

	// SaveVersion is the save stream format version written by Engine.Serialize.
	SaveVersion = 1
)
