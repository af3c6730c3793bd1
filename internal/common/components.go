package common

const (
	ComponentPipeline     = "pipeline"
	ComponentRegistry     = "registry"
	ComponentLogFetcher   = "log-fetcher"
	ComponentBlockFetcher = "block-fetcher"
	ComponentReconciler   = "reconciler"
	ComponentStore        = "store"
	ComponentRPC          = "rpc"
	ComponentABIImport    = "abi-import"
	ComponentAPI          = "api"
)

var AllComponents = map[string]struct{}{
	ComponentPipeline:     {},
	ComponentRegistry:     {},
	ComponentLogFetcher:   {},
	ComponentBlockFetcher: {},
	ComponentReconciler:   {},
	ComponentStore:        {},
	ComponentRPC:          {},
	ComponentABIImport:    {},
	ComponentAPI:          {},
}
