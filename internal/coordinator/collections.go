package coordinator

import "github.com/ternarybob/workdispatch/internal/models"

// Collection names on the coordinator, one per job type plus the shared
// data-plane entities (spec.md §3, §6).
const (
	CollectionJobsCrawl               = "jobs-crawl"
	CollectionJobsDiscovery           = "jobs-discovery"
	CollectionJobsIngredient          = "jobs-ingredient-discovery"
	CollectionJobsVideoDiscovery      = "jobs-video-discovery"
	CollectionJobsVideoProcessing     = "jobs-video-processing"
	CollectionJobsAggregation         = "jobs-aggregation"

	CollectionWorkers         = "workers"
	CollectionJoinRecords     = "join-records"
	CollectionEvents          = "events"

	CollectionSourceProducts = "source-products"
	CollectionSourceVariants = "source-variants"
	CollectionProducts       = "products"
	CollectionProductVariant = "product-variants"
	CollectionIngredients    = "ingredients"
	CollectionCreators       = "creators"
	CollectionChannels       = "channels"
	CollectionVideos         = "videos"
	CollectionMedia          = "media"
	CollectionSnippets       = "snippets"
	CollectionMentions       = "product-mentions"
)

// jobCollections maps each job type to its collection name, used by the
// claim engine to issue the same three-query shape against every type.
var jobCollections = map[models.JobType]string{
	models.JobTypeCrawl:               CollectionJobsCrawl,
	models.JobTypeDiscovery:           CollectionJobsDiscovery,
	models.JobTypeIngredientDiscovery: CollectionJobsIngredient,
	models.JobTypeVideoDiscovery:      CollectionJobsVideoDiscovery,
	models.JobTypeVideoProcessing:     CollectionJobsVideoProcessing,
	models.JobTypeAggregation:         CollectionJobsAggregation,
}

// JobCollection resolves the coordinator collection backing a job type.
func JobCollection(t models.JobType) string {
	return jobCollections[t]
}
