package config

// NewDirectoryForTest creates a Directory config for testing purposes
func NewDirectoryForTest(path string) *Directory {
	return &Directory{path: path}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, sqlitePath string) *Repository {
	return &Repository{backend: backend, sqlitePath: sqlitePath}
}

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, channelID string) *Slack {
	return &Slack{botToken: botToken, channelID: channelID}
}

// NewStorageForTest creates a Storage config for testing purposes
func NewStorageForTest(bucket, prefix, localDir string) *Storage {
	return &Storage{bucket: bucket, prefix: prefix, localDir: localDir}
}
