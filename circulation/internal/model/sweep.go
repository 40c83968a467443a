package model

type SweepBucket string

const (
	BucketDueIn2   SweepBucket = "due_in_2"
	BucketDueIn1   SweepBucket = "due_in_1"
	BucketDueToday SweepBucket = "due_today"
	BucketOverdue  SweepBucket = "overdue"
)

// SweepResult counts loans per bucket. Deduplicated loans were already notified
// for the same bucket and day; Failed loans hit an error and were skipped.
type SweepResult struct {
	DueIn2       int `json:"dueIn2"`
	DueIn1       int `json:"dueIn1"`
	DueToday     int `json:"dueToday"`
	Overdue      int `json:"overdue"`
	Deduplicated int `json:"deduplicated"`
	Failed       int `json:"failed"`
}

func (r *SweepResult) Add(bucket SweepBucket) {
	switch bucket {
	case BucketDueIn2:
		r.DueIn2++
	case BucketDueIn1:
		r.DueIn1++
	case BucketDueToday:
		r.DueToday++
	case BucketOverdue:
		r.Overdue++
	}
}
