package inmemdb

import (
	"strings"

	"github.com/trezcool/campus/core/skill"
)

// pairUser returns the user half of a pairKey.
func pairUser(key string) string {
	return key[strings.LastIndex(key, "/")+1:]
}

func pairParent(key string) string {
	return key[:strings.LastIndex(key, "/")]
}

// forgetUsers drops what belongs to the deleted users. The caller holds txMu.
func (db *DB) forgetUsers(gone map[string]bool) {
	db.forgetPolls(gone)
	db.forgetForms(gone)
	db.forgetEvents(gone)
	db.forgetComplaints(gone)
	db.forgetCourses(gone)

	db.announcement.Lock()
	for id, a := range db.announcement.rows {
		if gone[a.AuthorID] {
			delete(db.announcement.rows, id)
		}
	}
	db.announcement.Unlock()

	db.item.Lock()
	for id, item := range db.item.rows {
		switch {
		case gone[item.ReporterID]:
			delete(db.item.rows, id)
		case gone[item.ClaimantID]:
			item.ClaimantID = ""
		}
	}
	db.item.Unlock()
}

func (db *DB) forgetPolls(gone map[string]bool) {
	db.poll.Lock()
	defer db.poll.Unlock()
	db.ballot.Lock()
	defer db.ballot.Unlock()

	for key, b := range db.ballot.rows {
		p, ok := db.poll.rows[b.PollID]
		switch {
		case ok && gone[p.CreatorID]:
			delete(db.ballot.rows, key)
		case gone[b.UserID]:
			if ok {
				p.TotalVotes--
				for _, optID := range b.OptionIDs {
					for i := range p.Options {
						if p.Options[i].ID == optID {
							p.Options[i].Votes--
						}
					}
				}
			}
			delete(db.ballot.rows, key)
		}
	}
	for id, p := range db.poll.rows {
		if gone[p.CreatorID] {
			delete(db.poll.rows, id)
		}
	}
}

func (db *DB) forgetForms(gone map[string]bool) {
	db.form.Lock()
	defer db.form.Unlock()
	db.response.Lock()
	defer db.response.Unlock()

	for id, f := range db.form.rows {
		if gone[f.CreatorID] {
			delete(db.form.rows, id)
		}
	}
	for id, r := range db.response.rows {
		if _, ok := db.form.rows[r.FormID]; !ok || gone[r.UserID] {
			delete(db.response.rows, id)
		}
	}
}

func (db *DB) forgetEvents(gone map[string]bool) {
	db.event.Lock()
	defer db.event.Unlock()
	db.registration.Lock()
	defer db.registration.Unlock()

	for id, e := range db.event.rows {
		if gone[e.OrganizerID] {
			delete(db.event.rows, id)
		}
	}
	for key, r := range db.registration.rows {
		e, ok := db.event.rows[r.EventID]
		if !ok {
			delete(db.registration.rows, key)
			continue
		}
		if gone[r.UserID] {
			e.RegistrationCount--
			delete(db.registration.rows, key)
		}
	}
}

func (db *DB) forgetComplaints(gone map[string]bool) {
	db.complaint.Lock()
	defer db.complaint.Unlock()
	db.upvote.Lock()
	defer db.upvote.Unlock()

	for id, c := range db.complaint.rows {
		if gone[c.StudentID] {
			delete(db.complaint.rows, id)
		}
	}
	for key := range db.upvote.rows {
		c, ok := db.complaint.rows[pairParent(key)]
		if !ok {
			delete(db.upvote.rows, key)
			continue
		}
		if gone[pairUser(key)] {
			c.Upvotes--
			delete(db.upvote.rows, key)
		}
	}
}

func (db *DB) forgetCourses(gone map[string]bool) {
	db.course.Lock()
	defer db.course.Unlock()
	db.rating.Lock()
	defer db.rating.Unlock()

	for id, c := range db.course.rows {
		if gone[c.InstructorID] {
			delete(db.course.rows, id)
		}
	}
	for key, score := range db.rating.rows {
		c, ok := db.course.rows[pairParent(key)]
		if !ok {
			delete(db.rating.rows, key)
			continue
		}
		if gone[pairUser(key)] {
			c.RemoveRating(*score)
			delete(db.rating.rows, key)
		}
	}
	for _, c := range db.course.rows {
		learners := make([]string, 0, len(c.Learners))
		for _, uid := range c.Learners {
			if !gone[uid] {
				learners = append(learners, uid)
			}
		}
		if len(learners) == len(c.Learners) {
			continue
		}
		c.Learners = learners
		if c.Status == skill.StatusFull {
			c.Status = skill.StatusOpen
		}
	}
}
