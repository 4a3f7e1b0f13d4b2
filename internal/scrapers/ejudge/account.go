package ejudge

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ejudge-client/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_scrape_account = "scrape.account"
	report_scrape_online  = "scrape.online"
)

// AccountMe addresses the logged in user's own account page.
const AccountMe = 0

// ParseAccount scrapes an account page. The id is read from the last link of
// the profile column (the edit link, "/account/{id}/edit"), `fallbackID` is
// used when that link has none.
func ParseAccount(doc *goquery.Document, fallbackID int) (Account, error) {
	col := doc.Find(".col-xs-12")
	profile := col.Find(".col-xs-3")
	if profile.Length() == 0 {
		return Account{}, pageError(doc, "Account")
	}

	id := fallbackID
	anchors := profile.Find("a")
	if anchors.Length() > 0 {
		if linkID, ok := htmlutil.IDFromLink(anchors.Last().AttrOr("href", "")); ok {
			id = linkID
		}
	}
	if id == AccountMe {
		return Account{}, unexpectedPage("account: cannot get an account id")
	}

	spans := profile.Find("span")
	return Account{
		ID:            id,
		ProfilePicURL: doc.Find(".img-responsive").First().AttrOr("src", ""),
		Username:      htmlutil.Text(spans.Eq(0)),
		Fullname:      htmlutil.Text(spans.Eq(1)),
		Email:         htmlutil.Text(spans.Eq(2).Find("a").First()),
		Desc:          htmlutil.Text(col.Find(".col-xs-9 > .well")),
	}, nil
}

func accountPath(id int) string {
	if id == AccountMe {
		return pathAccount + "/me"
	}
	return pathAccount + "/" + strconv.Itoa(id)
}

// Account fetches an account, AccountMe fetches the logged in user.
func (c *Client) Account(ctx context.Context, id int) (Account, error) {
	doc, err := c.fetchAuthenticated(ctx, get(accountPath(id)))
	if err != nil {
		return Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	account, err := ParseAccount(doc, id)
	if err != nil {
		c.reportScrapeError(report_scrape_account, err, id)
		return Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return account, nil
}

// MyAccountOrGuest returns the logged in account without triggering a
// login, nil when the session is not logged in.
func (c *Client) MyAccountOrGuest(ctx context.Context) (*Account, error) {
	doc, err := c.fetchDocument(ctx, get(accountPath(AccountMe)))
	if err != nil {
		return nil, fmt.Errorf("get my account: %w", err)
	}
	if IsLoginPage(doc) {
		return nil, nil
	}
	account, err := ParseAccount(doc, AccountMe)
	if err != nil {
		c.reportScrapeError(report_scrape_account, err, "me")
		return nil, fmt.Errorf("get my account: %w", err)
	}
	return &account, nil
}

// ParseOnlineUsers scrapes the online users table.
func ParseOnlineUsers(doc *goquery.Document, loc *time.Location) ([]UserActivity, error) {
	users := []UserActivity{}
	rows := doc.Find("#example2 > tbody").Find("tr")
	for i := range rows.Nodes {
		tds := rows.Eq(i).Find("td")

		link := tds.Eq(0).Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return nil, unexpectedPage("online users: cannot get an account url (row %d)", i)
		}
		id, ok := htmlutil.IDFromLink(href)
		if !ok {
			return nil, unexpectedPage("online users: no id in account url %q", href)
		}

		lastSeen := htmlutil.Text(tds.Eq(2))
		users = append(users, UserActivity{
			Account: Account{
				ID:       id,
				Username: htmlutil.Text(link),
				Fullname: htmlutil.Text(tds.Eq(1).Find("a").First()),
			},
			LastSeen:     optionalTime(lastSeen, loc),
			LastSeenText: lastSeen,
			CurrentURL:   htmlutil.Text(tds.Eq(3).Find("a").First()),
		})
	}
	return users, nil
}

// OnlineUsers lists the users currently online.
func (c *Client) OnlineUsers(ctx context.Context) ([]UserActivity, error) {
	doc, err := c.fetchAuthenticated(ctx, get(pathUserOnline))
	if err != nil {
		return nil, fmt.Errorf("get online users: %w", err)
	}
	users, err := ParseOnlineUsers(doc, c.location)
	if err != nil {
		c.reportScrapeError(report_scrape_online, err)
		return nil, fmt.Errorf("get online users: %w", err)
	}
	c.tel.ReportCount(report_scrape_online, int64(len(users)))
	return users, nil
}
