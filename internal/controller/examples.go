package controller

// defaultExamples are the sample sentences a user can load into the input.
var defaultExamples = []string{
	"私は今日、電車で学校へ行きました。",
	"明日の会議は午後三時から始まります。",
	"駅の近くに新しいパン屋ができたそうです。",
	"雨が降っていたので、傘を持って出かけました。",
	"週末に家族と一緒に映画を見に行きたいです。",
}

// Examples returns a copy of the built-in sample sentences.
func Examples() []string {
	return append([]string{}, defaultExamples...)
}
