package cli

var (
	RunWithWriter  = run
	GetIndexConfig = getIndexConfig
)
