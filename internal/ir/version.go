package ir

// FormatVersion is the version of the canonical blob encoding.
// Stores record it so that a future encoding change can be detected.
const FormatVersion = 1
