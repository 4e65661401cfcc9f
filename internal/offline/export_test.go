package offline

import "time"

// BaseBackoff exposes the resolved backoff base to external tests.
func (q *Queue) BaseBackoff() time.Duration { return q.baseBackoff }
