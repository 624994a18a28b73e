package domain

// KeyPrefix namespaces every Redis key written by this engine.
const KeyPrefix = "lexdex:"
