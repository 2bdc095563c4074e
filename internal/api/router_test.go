package api

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"pokernight/internal/config"
	"pokernight/internal/service"
	"pokernight/internal/testutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

type RouterSuite struct {
	suite.Suite
	server   *httptest.Server
	client   *http.Client
	services *service.Container
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: "0", Mode: "debug"},
		Session: config.SessionConfig{Secret: "test-secret", CookieName: "pokernight_session", Expire: 1},
		Roster:  config.RosterConfig{Store: config.RosterStoreMemory},
		Players: config.PlayersConfig{ReuseByName: true},
	}
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.services = service.NewContainer(testutil.NewDB(s.T()), nil, testConfig())

	r := gin.New()
	RegisterRoutes(r, s.services)
	s.server = httptest.NewServer(r)

	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	s.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *RouterSuite) TearDownTest() {
	s.server.Close()
}

func (s *RouterSuite) get(path string) *http.Response {
	resp, err := s.client.Get(s.server.URL + path)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) post(path string, form url.Values) *http.Response {
	resp, err := s.client.PostForm(s.server.URL+path, form)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) body(resp *http.Response) string {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return string(data)
}

func (s *RouterSuite) document(resp *http.Response) *goquery.Document {
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	s.Require().NoError(err)
	return doc
}

type seatResult struct {
	Success    bool     `json:"success"`
	NewBalance *float64 `json:"new_balance"`
	Error      string   `json:"error"`
}

func (s *RouterSuite) seatResult(resp *http.Response) seatResult {
	defer resp.Body.Close()
	var out seatResult
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *RouterSuite) addPlayer(name, buyIn string) {
	resp := s.post("/add_player", url.Values{"name": {name}, "buy_in": {buyIn}})
	resp.Body.Close()
	s.Require().Equal(http.StatusSeeOther, resp.StatusCode)
	s.Equal("/manage_players", resp.Header.Get("Location"))
}

func (s *RouterSuite) TestPing() {
	resp := s.get("/ping")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`{"success":true,"data":{"message":"pong"}}`, s.body(resp))
}

func (s *RouterSuite) TestAddPlayerAndList() {
	s.addPlayer("Alice", "50")
	s.addPlayer("Bob", "")

	doc := s.document(s.get("/manage_players"))
	rows := doc.Find("tr.player-row")
	s.Equal(2, rows.Length())
	s.Equal("Alice", strings.TrimSpace(rows.Eq(0).Find(".player-name").Text()))
	s.Equal("-50.00", strings.TrimSpace(rows.Eq(0).Find(".player-balance").Text()))
	s.True(rows.Eq(0).Find(".player-balance").HasClass("negative"))
	s.Equal("0.00", strings.TrimSpace(rows.Eq(1).Find(".player-balance").Text()))
}

func (s *RouterSuite) TestAddPlayerInvalidInput() {
	resp := s.post("/add_player", url.Values{"name": {"Alice"}, "buy_in": {"lots"}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Invalid input", s.body(resp))

	resp = s.post("/add_player", url.Values{"buy_in": {"10"}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	doc := s.document(s.get("/manage_players"))
	s.Equal(0, doc.Find("tr.player-row").Length())
}

func (s *RouterSuite) TestUpdatePlayer() {
	s.addPlayer("Alice", "50")

	doc := s.document(s.get("/update_player/1"))
	s.Equal("-50.00", strings.TrimSpace(doc.Find("#player .player-balance").Text()))

	resp := s.post("/update_player/1", url.Values{"change": {"120"}})
	resp.Body.Close()
	s.Equal(http.StatusSeeOther, resp.StatusCode)

	doc = s.document(s.get("/manage_players"))
	row := doc.Find(`tr.player-row[data-player-id="1"]`)
	s.Equal("70.00", strings.TrimSpace(row.Find(".player-balance").Text()))
	s.Equal("1", strings.TrimSpace(row.Find(".player-games").Text()))
}

func (s *RouterSuite) TestUpdatePlayerNonNumericChange() {
	s.addPlayer("Alice", "50")

	resp := s.post("/update_player/1", url.Values{"change": {"ten"}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Invalid input", s.body(resp))

	p, err := s.services.Player.Get(s.T().Context(), 1)
	s.Require().NoError(err)
	s.Equal(-50.0, p.Balance)
	s.Equal(0, p.GamesPlayed)
}

func (s *RouterSuite) TestUpdateMissingPlayer() {
	resp := s.get("/update_player/42")
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.post("/update_player/42", url.Values{"change": {"1"}})
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.get("/update_player/abc")
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func (s *RouterSuite) TestDeletePlayer() {
	s.addPlayer("Alice", "50")

	resp := s.post("/delete_player/1", nil)
	resp.Body.Close()
	s.Equal(http.StatusSeeOther, resp.StatusCode)

	resp = s.post("/delete_player/1", nil)
	resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *RouterSuite) TestSeatSettleAndRefresh() {
	s.addPlayer("Alice", "50")

	resp := s.post("/add_player/1/0", url.Values{"name": {"Alice"}, "buy_in": {"50"}})
	resp.Body.Close()
	s.Require().Equal(http.StatusSeeOther, resp.StatusCode)
	s.Equal("/setup_game/1", resp.Header.Get("Location"))

	doc := s.document(s.get("/setup_game/1"))
	seat := doc.Find(`tr.seat[data-seat-index="0"]`)
	s.Equal("Alice", strings.TrimSpace(seat.Find(".seat-name").Text()))
	s.Equal("-50.00", strings.TrimSpace(seat.Find(".seat-balance").Text()))
	s.Equal(9, doc.Find("tr.seat").Length())

	result := s.seatResult(s.post("/update_player_in_game/1/0", url.Values{"change": {"120"}}))
	s.True(result.Success)
	s.Require().NotNil(result.NewBalance)
	s.Equal(70.0, *result.NewBalance)

	resp = s.post("/add_player/2/3", url.Values{"name": {"Alice"}, "buy_in": {"50"}})
	resp.Body.Close()
	s.Require().Equal(http.StatusSeeOther, resp.StatusCode)

	doc = s.document(s.get("/setup_game/2"))
	seat = doc.Find(`tr.seat[data-seat-index="3"]`)
	s.Equal("70.00", strings.TrimSpace(seat.Find(".seat-balance").Text()))

	home := s.document(s.get("/"))
	s.Equal(2, home.Find("li.table-link").Length())
}

func (s *RouterSuite) TestUpdateEmptySeat() {
	resp := s.post("/update_player_in_game/1/4", url.Values{"change": {"10"}})
	s.Equal(http.StatusNotFound, resp.StatusCode)
	result := s.seatResult(resp)
	s.False(result.Success)
	s.Equal("Player not found", result.Error)
	s.Nil(result.NewBalance)
}

func (s *RouterSuite) TestUpdateSeatNonNumericChange() {
	resp := s.post("/add_player/1/0", url.Values{"name": {"Alice"}, "buy_in": {"50"}})
	resp.Body.Close()

	resp = s.post("/update_player_in_game/1/0", url.Values{"change": {"oops"}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	result := s.seatResult(resp)
	s.False(result.Success)
	s.Equal("Invalid input", result.Error)

	p, err := s.services.Player.Get(s.T().Context(), 1)
	s.Require().NoError(err)
	s.Equal(-50.0, p.Balance)
	s.Equal(0, p.GamesPlayed)
}

func (s *RouterSuite) TestSeatPlayerInvalidInput() {
	resp := s.post("/add_player/1/0", url.Values{"name": {"Alice"}, "buy_in": {"fifty"}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Invalid input", s.body(resp))
}

func (s *RouterSuite) TestInvalidTableAndSeat() {
	for _, path := range []string{"/setup_game/0", "/setup_game/x", "/add_player/1/9", "/add_player/-1/0", "/clear_game/0"} {
		resp := s.get(path)
		s.Equal(http.StatusNotFound, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func (s *RouterSuite) TestClearGame() {
	for _, path := range []string{"/add_player/1/0", "/add_player/2/0"} {
		resp := s.post(path, url.Values{"name": {"Alice"}, "buy_in": {"10"}})
		resp.Body.Close()
	}

	resp := s.get("/clear_game/1")
	resp.Body.Close()
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal("/setup_game/1", resp.Header.Get("Location"))

	doc := s.document(s.get("/setup_game/1"))
	s.Equal(9, doc.Find("td.seat-empty").Length())

	doc = s.document(s.get("/setup_game/2"))
	s.Equal(8, doc.Find("td.seat-empty").Length())
}

func (s *RouterSuite) TestDeletedPlayerLeavesTable() {
	resp := s.post("/add_player/1/5", url.Values{"name": {"Bob"}, "buy_in": {"10"}})
	resp.Body.Close()

	resp = s.post("/delete_player/1", nil)
	resp.Body.Close()
	s.Require().Equal(http.StatusSeeOther, resp.StatusCode)

	doc := s.document(s.get("/setup_game/1"))
	s.Equal(9, doc.Find("td.seat-empty").Length())
}

func (s *RouterSuite) TestPlayerHistory() {
	resp := s.post("/add_player/3/2", url.Values{"name": {"Carol"}, "buy_in": {"20"}})
	resp.Body.Close()
	result := s.seatResult(s.post("/update_player_in_game/3/2", url.Values{"change": {"-5.5"}}))
	s.Require().True(result.Success)

	doc := s.document(s.get("/player_history/1"))
	rows := doc.Find("tr.log-row")
	s.Equal(2, rows.Length())
	s.Equal("seat_result", rows.Eq(0).AttrOr("data-type", ""))
	s.Equal("-25.50", strings.TrimSpace(rows.Eq(0).Find(".log-balance").Text()))
	s.Equal("buy_in", rows.Eq(1).AttrOr("data-type", ""))

	resp = s.get("/player_history/9")
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func (s *RouterSuite) TestSessionsAreSeparate() {
	resp := s.post("/add_player/1/0", url.Values{"name": {"Alice"}, "buy_in": {"10"}})
	resp.Body.Close()

	stranger := &http.Client{}
	resp, err := stranger.Get(s.server.URL + "/setup_game/1")
	s.Require().NoError(err)
	doc := s.document(resp)
	s.Equal(9, doc.Find("td.seat-empty").Length())
}

func (s *RouterSuite) TestBalanceOverflowRejected() {
	s.addPlayer("Alice", "50")

	resp := s.post("/update_player/1", url.Values{"change": {"1e308"}})
	resp.Body.Close()
	s.Require().Equal(http.StatusSeeOther, resp.StatusCode)

	resp = s.post("/update_player/1", url.Values{"change": {"1e308"}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Invalid input", s.body(resp))

	resp = s.post("/add_player/1/0", url.Values{"name": {"Alice"}, "buy_in": {"50"}})
	resp.Body.Close()
	s.Require().Equal(http.StatusSeeOther, resp.StatusCode)

	resp = s.post("/update_player_in_game/1/0", url.Values{"change": {"1e308"}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	result := s.seatResult(resp)
	s.False(result.Success)
	s.Equal("Invalid input", result.Error)

	p, err := s.services.Player.Get(s.T().Context(), 1)
	s.Require().NoError(err)
	s.False(math.IsInf(p.Balance, 0))
	s.Equal(1, p.GamesPlayed)

	result = s.seatResult(s.post("/update_player_in_game/1/0", url.Values{"change": {"1"}}))
	s.True(result.Success)
	s.Require().NotNil(result.NewBalance)
}

func (s *RouterSuite) TestSeatRowsCarryPlayerID() {
	doc := s.document(s.get("/setup_game/1"))
	s.Equal(9, doc.Find(`tr.seat[data-player-id=""]`).Length())

	s.addPlayer("Alice", "50")
	resp := s.post("/add_player/1/4", url.Values{"name": {"Alice"}, "buy_in": {"50"}})
	resp.Body.Close()
	s.Require().Equal(http.StatusSeeOther, resp.StatusCode)

	doc = s.document(s.get("/setup_game/1"))
	seat := doc.Find(`tr.seat[data-seat-index="4"]`)
	id, ok := seat.Attr("data-player-id")
	s.True(ok)
	s.Equal("1", id)
	s.Equal(8, doc.Find(`tr.seat[data-player-id=""]`).Length())

	script := doc.Find("script").Text()
	s.Contains(script, "row.dataset.playerId")
	s.Contains(script, "location.reload()")
}
