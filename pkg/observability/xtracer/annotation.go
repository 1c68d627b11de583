package xtracer

import (
	"strconv"
	"time"
)

// Kind 注解类型
type Kind int

// 注解类型
const (
	KindServiceName Kind = iota + 1
	KindRPC
	KindBinary
	KindServerRecv
	KindServerSend
	KindClientSend
	KindClientRecv
	KindLocalAddr
	KindMessage
)

var kindNames = map[Kind]string{
	KindServiceName: "ServiceName",
	KindRPC:         "Rpc",
	KindBinary:      "BinaryAnnotation",
	KindServerRecv:  "ServerRecv",
	KindServerSend:  "ServerSend",
	KindClientSend:  "ClientSend",
	KindClientRecv:  "ClientRecv",
	KindLocalAddr:   "LocalAddr",
	KindMessage:     "Message",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Annotation span 注解
//
// 具体类型：ServiceName、RPC、Binary、ServerRecv、ServerSend、ClientSend、
// ClientRecv、LocalAddr、Message。
type Annotation interface {
	Kind() Kind
	String() string
}

// ServiceName 服务名注解
type ServiceName struct{ Name string }

// RPC 方法名注解
type RPC struct{ Name string }

// Binary 键值注解
type Binary struct{ Key, Value string }

// ServerRecv 服务端收到请求
type ServerRecv struct{}

// ServerSend 服务端发出响应
type ServerSend struct{}

// ClientSend 客户端发出请求
type ClientSend struct{}

// ClientRecv 客户端收到响应
type ClientRecv struct{}

// LocalAddr 本地地址注解
type LocalAddr struct {
	Host string
	Port int
}

// Message 自定义时间事件
type Message struct{ Value string }

func (ServiceName) Kind() Kind { return KindServiceName }
func (RPC) Kind() Kind         { return KindRPC }
func (Binary) Kind() Kind      { return KindBinary }
func (ServerRecv) Kind() Kind  { return KindServerRecv }
func (ServerSend) Kind() Kind  { return KindServerSend }
func (ClientSend) Kind() Kind  { return KindClientSend }
func (ClientRecv) Kind() Kind  { return KindClientRecv }
func (LocalAddr) Kind() Kind   { return KindLocalAddr }
func (Message) Kind() Kind     { return KindMessage }

func (a ServiceName) String() string { return "ServiceName(" + a.Name + ")" }
func (a RPC) String() string         { return "Rpc(" + a.Name + ")" }
func (a Binary) String() string      { return "BinaryAnnotation(" + a.Key + "=" + a.Value + ")" }
func (ServerRecv) String() string    { return "ServerRecv" }
func (ServerSend) String() string    { return "ServerSend" }
func (ClientSend) String() string    { return "ClientSend" }
func (ClientRecv) String() string    { return "ClientRecv" }
func (a Message) String() string     { return "Message(" + a.Value + ")" }

func (a LocalAddr) String() string {
	return "LocalAddr(" + a.Host + ":" + strconv.Itoa(a.Port) + ")"
}

// Record 一条带时间戳的注解记录
type Record struct {
	ID         ID
	Timestamp  time.Time
	Annotation Annotation
}
