package translator

import (
	"github.com/telhawk-systems/stixbridge/internal/models"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// objHandler is the builder pair for one composite object name.
type objHandler struct {
	observable func(obj *models.Object) map[string]stix.Node
	pattern    func(obj *models.Object) string
}

// objectBuilders routes composite object names. The file entry covers plain
// files only: executables with an embedded pe structure take the deferred
// join path instead.
var objectBuilders = map[string]objHandler{
	"asn":                {observable: asnObjectObservable, pattern: asnObjectPattern},
	"credential":         {observable: credentialObservable, pattern: credentialPattern},
	"domain-ip":          {observable: domainIPObjectObservable, pattern: domainIPObjectPattern},
	"email":              {observable: emailObservable, pattern: emailPattern},
	"file":               {observable: fileObservable, pattern: filePattern},
	"ip-port":            {observable: ipPortObservable, pattern: ipPortPattern},
	"network-connection": {observable: networkConnectionObservable, pattern: networkConnectionPattern},
	"network-socket":     {observable: networkSocketObservable, pattern: networkSocketPattern},
	"process":            {observable: processObservable, pattern: processPattern},
	"registry-key":       {observable: registryKeyObservable, pattern: registryKeyPattern},
	"url":                {observable: urlObjectObservable, pattern: urlObjectPattern},
	"user-account":       {observable: userAccountObservable, pattern: userAccountPattern},
	"x509":               {observable: x509Observable, pattern: x509Pattern},
}
