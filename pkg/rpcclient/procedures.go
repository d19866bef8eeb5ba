package rpcclient

// Kind says how a procedure may be called: queries accept GET or POST,
// mutations only POST.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Procedure describes one RPC endpoint served at /rpc/<Name>.
type Procedure struct {
	Name   string `json:"name" yaml:"name"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
	// Auth marks procedures that demand a bearer token when the server runs
	// with requireAuth.
	Auth bool `json:"auth" yaml:"auth"`
}

const (
	ProcSignUp              = "signup"
	ProcSignIn              = "signin"
	ProcSignOut             = "signout"
	ProcGetCurrentUser      = "getCurrentUser"
	ProcUpdateUser          = "updateUser"
	ProcGetUserByID         = "getUserById"
	ProcCreateChat          = "createChat"
	ProcGetChats            = "getChats"
	ProcGetMessages         = "getMessages"
	ProcSendMessage         = "sendMessage"
	ProcUpdateMessageStatus = "updateMessageStatus"
)

// Procedures is the registry in routing order.
var Procedures = []Procedure{
	{Name: ProcSignUp, Kind: KindMutation, Input: "SignUpInput", Output: "AuthResult"},
	{Name: ProcSignIn, Kind: KindMutation, Input: "SignInInput", Output: "AuthResult"},
	{Name: ProcSignOut, Kind: KindMutation, Input: "TokenInput", Output: "OK"},
	{Name: ProcGetCurrentUser, Kind: KindQuery, Input: "TokenInput", Output: "User"},
	{Name: ProcUpdateUser, Kind: KindMutation, Input: "UpdateUserInput", Output: "User", Auth: true},
	{Name: ProcGetUserByID, Kind: KindQuery, Input: "UserIDInput", Output: "User | null", Auth: true},
	{Name: ProcCreateChat, Kind: KindMutation, Input: "CreateChatInput", Output: "Chat", Auth: true},
	{Name: ProcGetChats, Kind: KindQuery, Input: "UserIDInput", Output: "Chat[]", Auth: true},
	{Name: ProcGetMessages, Kind: KindQuery, Input: "ChatIDInput", Output: "Message[]", Auth: true},
	{Name: ProcSendMessage, Kind: KindMutation, Input: "SendMessageInput", Output: "SendMessageResult", Auth: true},
	{Name: ProcUpdateMessageStatus, Kind: KindMutation, Input: "UpdateMessageStatusInput", Output: "Message", Auth: true},
}

// Lookup finds a procedure by name.
func Lookup(name string) (Procedure, bool) {
	for _, p := range Procedures {
		if p.Name == name {
			return p, true
		}
	}
	return Procedure{}, false
}
