package mockconsole

// Transaction is one recorded exchange served by the mock.
type Transaction struct {
	ID       string
	URI      string
	Request  string
	Response string
	// CodeOnly renders the bodies as bare code blocks, without the
	// data-data_body containers.
	CodeOnly bool
}

// Session is one punch-out session served by the mock.
type Session struct {
	ID           string
	Key          string
	Label        string // "[Prod] Customer"
	Environment  string
	Transactions []Transaction
}

// Fixture is the whole content of a mock console.
type Fixture struct {
	Realm     string
	Username  string
	Password  string
	CSRFToken string
	// ListKey is the JSON key holding listing rows: "items" or "data".
	ListKey  string
	Sessions []Session
}

const (
	sampleCatalog = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE cXML SYSTEM "http://xml.cxml.org/schemas/cXML/1.2.014/cXML.dtd">
<cXML payloadID="1700000000.123@waters" timestamp="2026-01-01T00:00:00+00:00">
  <Header><From><Credential domain="DUNS"><Identity>123456789</Identity></Credential></From></Header>
  <Request><PunchOutSetupRequest operation="create"><BuyerCookie>abc</BuyerCookie></PunchOutSetupRequest></Request>
</cXML>`
	samplePayload = `{"customerId":"JJ-001","buyerCookie":"abc","operation":"create","items":[{"sku":"186002350","qty":1}]}`
)

// DefaultFixture is the fixture served by tcmock: one session with both
// bodies, one with a catalog only, one with nothing usable.
func DefaultFixture() Fixture {
	return Fixture{
		Realm:     "waters",
		Username:  "demo",
		Password:  "demo",
		CSRFToken: "mock-csrf-token",
		ListKey:   "items",
		Sessions: []Session{
			{
				ID: "5001", Key: "rh69224039e025d", Label: "[Prod] J&J", Environment: "Production",
				Transactions: []Transaction{
					{ID: "7223851", URI: "https://gateway.example/gateway/punchout/request/catalog", Request: sampleCatalog, Response: "<html>OK</html>"},
					{ID: "7223852", URI: "https://api.waters.com:443/p2/ext-waters-punchout-exp-api/setup", Request: "{}", Response: samplePayload},
				},
			},
			{
				ID: "5002", Key: "qa77310f1c2b", Label: "[QA] Acme Labs", Environment: "QA",
				Transactions: []Transaction{
					{ID: "7223860", URI: "https://gateway.example/punchout/start", Request: sampleCatalog, Response: "", CodeOnly: true},
				},
			},
			{
				ID: "5003", Key: "dv0000000001", Label: "[Dev] Empty Co", Environment: "Development",
				Transactions: []Transaction{
					{ID: "7223870", URI: "https://elsewhere.example/health", Request: "ping", Response: "pong"},
				},
			},
		},
	}
}
