package shared

const (
	UserID      = "user_id"
	FirebaseUID = "firebase_uid"

	ContentTypeVideo    = "video"
	ContentTypePlaylist = "playlist"

	ActivityImport                = "import"
	ActivityQuizStarted           = "quiz-started"
	ActivityPlaylistQuizStarted   = "playlist-quiz-started"
	ActivityQuizSubmitted         = "quiz-submitted"
	ActivityPlaylistQuizSubmitted = "playlist-quiz-submitted"
	ActivityCertificateIssued     = "certificate-issued"
	ActivityVideoCompleted        = "video-completed"
	ActivityClassroomAccessed     = "classroom-accessed"
	ActivityContentDeleted        = "content-deleted"

	XPVideoCompleted      = 10
	XPVideoQuizPassed     = 10
	XPPlaylistQuizPerItem = 5

	PassingScore         = 50.0
	QuizTimeLimitMinutes = 20

	RecentItemsLimit    = 3
	DefaultActivityDays = 14
	MaxActivityDays     = 90
	DefaultPageSize     = 10
	MaxPageSize         = 50
	MaxPage             = 10000

	DefaultLeaderboardSize = 50
	MaxLeaderboardSize     = 100
)
