package dashboard

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Napageneral/chatscope/internal/analytics"
	"github.com/Napageneral/chatscope/internal/config"
	"github.com/Napageneral/chatscope/internal/db"
	"github.com/Napageneral/chatscope/internal/reconcile"
)

const (
	defaultMessageLimit = 100
	maxMessageLimit     = 5000
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

func fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    nil,
	})
}

// selection is the table slice a request asks for.
type selection struct {
	table *reconcile.Table
	rows  []reconcile.Row
	opts  analytics.Options
}

// sectionData pairs one report section with the range it covers.
type sectionData struct {
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	NoData bool   `json:"no_data"`
	Result any    `json:"result"`
}

// selectRows loads the table and applies the start, end and tz query
// parameters. It writes the error response itself and reports false on
// failure.
func (s *Server) selectRows(c *gin.Context) (selection, bool) {
	var sel selection

	start, end, err := analytics.ParseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		fail(c, http.StatusBadRequest, 40001, err.Error())
		return sel, false
	}
	loc := s.Location
	if tz := c.Query("tz"); tz != "" {
		if loc, err = config.LoadLocation(tz); err != nil {
			fail(c, http.StatusBadRequest, 40002, "unknown time zone "+strconv.Quote(tz))
			return sel, false
		}
	}

	table, loaded := s.load(c)
	if !loaded {
		return sel, false
	}
	sel.table = table
	sel.opts = analytics.Options{Start: start, End: end, Location: loc}
	sel.rows = analytics.FilterRange(table.Rows, start, end)
	return sel, true
}

func (s *Server) load(c *gin.Context) (*reconcile.Table, bool) {
	table, err := s.Loader.Cached(c.Request.Context())
	if err != nil {
		if errors.Is(err, db.ErrSourceNotFound) {
			fail(c, http.StatusServiceUnavailable, 50301, "data source not found")
			return nil, false
		}
		s.Log.Error().Err(err).Msg("failed to load message table")
		fail(c, http.StatusInternalServerError, 50001, "failed to load messages")
		return nil, false
	}
	return table, true
}

func (s *Server) section(c *gin.Context, compute func(sel selection) any) {
	sel, okk := s.selectRows(c)
	if !okk {
		return
	}
	data := sectionData{NoData: len(sel.rows) == 0, Result: compute(sel)}
	if !sel.opts.Start.IsZero() {
		data.Start = sel.opts.Start.Format(analytics.DateLayout)
	}
	if !sel.opts.End.IsZero() {
		data.End = sel.opts.End.Format(analytics.DateLayout)
	}
	ok(c, data)
}

func (s *Server) Ping(c *gin.Context) {
	ok(c, gin.H{"pong": true})
}

// Range reports the span of available data, the default date selection.
func (s *Server) Range(c *gin.Context) {
	table, okk := s.load(c)
	if !okk {
		return
	}
	start, end, found := analytics.DateSpan(table.Rows)
	if !found {
		ok(c, gin.H{"no_data": true})
		return
	}
	ok(c, gin.H{
		"no_data":  false,
		"start":    start.Format(analytics.DateLayout),
		"end":      end.Format(analytics.DateLayout),
		"messages": len(table.Rows),
	})
}

func (s *Server) Report(c *gin.Context) {
	sel, okk := s.selectRows(c)
	if !okk {
		return
	}
	ok(c, analytics.Build(sel.table, sel.opts))
}

func (s *Server) Overview(c *gin.Context) {
	s.section(c, func(sel selection) any {
		return analytics.Overview(sel.rows, sel.opts.Start, sel.opts.End)
	})
}

func (s *Server) Daily(c *gin.Context) {
	s.section(c, func(sel selection) any { return analytics.Daily(sel.rows) })
}

func (s *Server) TopChats(c *gin.Context) {
	n := analytics.DefaultTopN
	if v := c.Query("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			fail(c, http.StatusBadRequest, 40003, "n must be a positive integer")
			return
		}
		n = parsed
	}
	s.section(c, func(sel selection) any {
		return analytics.TopChats(sel.rows, sel.table.ChatNames, n)
	})
}

func (s *Server) Hourly(c *gin.Context) {
	s.section(c, func(sel selection) any { return analytics.Hourly(sel.rows, sel.opts.Location) })
}

func (s *Server) ChatTypes(c *gin.Context) {
	s.section(c, func(sel selection) any { return analytics.ChatTypes(sel.rows) })
}

func (s *Server) Lengths(c *gin.Context) {
	s.section(c, func(sel selection) any { return analytics.Lengths(sel.rows) })
}

func (s *Server) ResponseTimes(c *gin.Context) {
	s.section(c, func(sel selection) any {
		return analytics.ResponseTimes(sel.rows, sel.table.ChatNames)
	})
}

type messagesPage struct {
	Total int             `json:"total"`
	Rows  []reconcile.Row `json:"rows"`
}

// Messages returns the most recent rows of the selection by timestamp,
// oldest first.
func (s *Server) Messages(c *gin.Context) {
	limit := defaultMessageLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			fail(c, http.StatusBadRequest, 40004, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxMessageLimit)
	}
	s.section(c, func(sel selection) any {
		rows := append([]reconcile.Row(nil), sel.rows...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp < rows[j].Timestamp })
		if len(rows) > limit {
			rows = rows[len(rows)-limit:]
		}
		return messagesPage{Total: len(sel.rows), Rows: rows}
	})
}

