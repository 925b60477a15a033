package digest

import v1 "github.com/sorters-club/sorters/internal/api/v1"

const (
	FeedHome = "home"
	FeedNews = "news"
)

// HomeFeed is the digest configuration of the home page feed.
// wrote-about-read and spoke-about-read are only produced by older clients;
// the home feed skips them so historical rows do not fail it.
func HomeFeed() Config {
	return Config{
		Name: FeedHome,
		Rules: map[v1.EventType]Rule{
			v1.CreatedGoal:  Keyed(IdentityTitle),
			v1.DoingGoal:    Keyed(IdentityTitle),
			v1.DoneGoal:     Keyed(IdentityTitle),
			v1.UpdatedGoals: Singleton(FlagUpdatedGoals),

			v1.CreatedRead:    Keyed(IdentityTitle),
			v1.DoingRead:      Keyed(IdentityTitle),
			v1.DoneRead:       Keyed(IdentityTitle),
			v1.UpdatedReading: Singleton(FlagUpdatedReading),
			v1.WroteAboutRead: Ignored(),
			v1.SpokeAboutRead: Ignored(),

			v1.CreatedTopic:  Keyed(IdentityTitle),
			v1.UpdatedTopics: Singleton(FlagUpdatedTopics),

			v1.CreatedEntry: Keyed(IdentityEntity),
			v1.UpdatedEntry: Ignored(),
			v1.DeletedEntry: Ignored(),

			v1.CreatedEssay: Keyed(IdentityEntity),
			v1.UpdatedEssay: Ignored(),
			v1.DeletedEssay: Ignored(),

			v1.CreatedSpeech: Keyed(IdentityEntity),
			v1.UpdatedSpeech: Ignored(),
			v1.DeletedSpeech: Ignored(),

			v1.CreatedConversation: Keyed(IdentityEntity),
			v1.UpdatedConversation: Ignored(),
			v1.DeletedConversation: Ignored(),

			v1.UpdatedProfile:   ProfileUpdate(),
			v1.CompletedProgram: Program(),
		},
		Programs:      DefaultCatalog(),
		ProfileFields: DefaultProfileFields,
	}
}

// NewsFeed is the digest configuration of the legacy /news page. It predates
// conversations and still lists what users wrote or spoke about their reads.
func NewsFeed() Config {
	return Config{
		Name: FeedNews,
		Rules: map[v1.EventType]Rule{
			v1.CreatedGoal:  Keyed(IdentityTitle),
			v1.DoingGoal:    Keyed(IdentityTitle),
			v1.DoneGoal:     Keyed(IdentityTitle),
			v1.UpdatedGoals: Singleton(FlagUpdatedGoals),

			v1.CreatedRead:    Keyed(IdentityTitle),
			v1.DoingRead:      Keyed(IdentityTitle),
			v1.DoneRead:       Keyed(IdentityTitle),
			v1.UpdatedReading: Singleton(FlagUpdatedReading),
			v1.WroteAboutRead: Keyed(IdentityTitle),
			v1.SpokeAboutRead: Keyed(IdentityTitle),

			v1.CreatedTopic:  Keyed(IdentityTitle),
			v1.UpdatedTopics: Singleton(FlagUpdatedTopics),

			v1.CreatedEntry: Keyed(IdentityEntity),
			v1.UpdatedEntry: Ignored(),
			v1.DeletedEntry: Ignored(),

			v1.CreatedEssay: Keyed(IdentityEntity),
			v1.UpdatedEssay: Ignored(),
			v1.DeletedEssay: Ignored(),

			v1.CreatedSpeech: Keyed(IdentityEntity),
			v1.UpdatedSpeech: Ignored(),
			v1.DeletedSpeech: Ignored(),

			v1.CreatedConversation: Ignored(),
			v1.UpdatedConversation: Ignored(),
			v1.DeletedConversation: Ignored(),

			v1.UpdatedProfile:   ProfileUpdate(),
			v1.CompletedProgram: Program(),
		},
		Programs:      DefaultCatalog(),
		ProfileFields: DefaultProfileFields,
	}
}
