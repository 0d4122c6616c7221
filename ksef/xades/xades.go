// Package xades buduje dokument AuthTokenRequest i opatruje go podpisem
// XAdES-BES (enveloped), wymaganym przez KSeF przy logowaniu certyfikatem.
package xades

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/go-faster/errors"

	"github.com/fakturnik/ksef-client/ksef/cipher"
)

const (
	nsAuth  = "http://ksef.mf.gov.pl/auth/token/2.0"
	nsDS    = "http://www.w3.org/2000/09/xmldsig#"
	nsXades = "http://uri.etsi.org/01903/v1.3.2#"

	algC14N          = "http://www.w3.org/2001/10/xml-exc-c14n#"
	algEnveloped     = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	algDigestSHA256  = "http://www.w3.org/2001/04/xmlenc#sha256"
	algRSAPSSSHA256  = "http://www.w3.org/2007/05/xmldsig-more#sha256-rsa-MGF1"
	algECDSASHA256   = "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha256"
	typeSignedProps  = "http://uri.etsi.org/01903#SignedProperties"
	subjectTypeValue = "certificateSubject"
)

// SignedAuthRequest buduje AuthTokenRequest wiążący challenge z NIP-em
// i zwraca pełny, podpisany dokument XML z deklaracją XML.
func SignedAuthRequest(challenge, nip string, cert *x509.Certificate, signer crypto.Signer) ([]byte, error) {
	if cert == nil || signer == nil {
		return nil, errors.New("certificate and private key are required")
	}

	sigMethod, err := signatureMethod(signer)
	if err != nil {
		return nil, err
	}

	signatureID := "Signature-" + randomID()
	signedPropsID := "SignedProperties-" + randomID()

	// Skrót dokumentu bez podpisu wchodzi do pierwszej referencji.
	root := etree.NewElement("AuthTokenRequest")
	root.CreateAttr("xmlns", nsAuth)
	root.CreateElement("Challenge").SetText(challenge)
	ctxID := root.CreateElement("ContextIdentifier")
	ctxID.CreateElement("Nip").SetText(nip)
	root.CreateElement("SubjectIdentifierType").SetText(subjectTypeValue)

	docDigest, err := digestElement(root)
	if err != nil {
		return nil, errors.Wrap(err, "digest document")
	}

	// SignedProperties: czas podpisu i skrót certyfikatu podpisującego.
	signedProps := etree.NewElement("xades:SignedProperties")
	signedProps.CreateAttr("xmlns:ds", nsDS)
	signedProps.CreateAttr("xmlns:xades", nsXades)
	signedProps.CreateAttr("Id", signedPropsID)

	ssp := signedProps.CreateElement("xades:SignedSignatureProperties")
	ssp.CreateElement("xades:SigningTime").SetText(time.Now().UTC().Format("2006-01-02T15:04:05Z"))

	signingCert := ssp.CreateElement("xades:SigningCertificate")
	certEl := signingCert.CreateElement("xades:Cert")

	certDigest := certEl.CreateElement("xades:CertDigest")
	dm := certDigest.CreateElement("ds:DigestMethod")
	dm.CreateAttr("Algorithm", algDigestSHA256)
	certSum := sha256.Sum256(cert.Raw)
	certDigest.CreateElement("ds:DigestValue").SetText(base64.StdEncoding.EncodeToString(certSum[:]))

	issuerSerial := certEl.CreateElement("xades:IssuerSerial")
	issuerSerial.CreateElement("ds:X509IssuerName").SetText(cert.Issuer.String())
	issuerSerial.CreateElement("ds:X509SerialNumber").SetText(cert.SerialNumber.String())

	propsDigest, err := digestElement(signedProps)
	if err != nil {
		return nil, errors.Wrap(err, "digest signed properties")
	}

	// SignedInfo z dwiema referencjami: dokument i SignedProperties.
	signedInfo := etree.NewElement("ds:SignedInfo")
	signedInfo.CreateAttr("xmlns:ds", nsDS)

	c14n := signedInfo.CreateElement("ds:CanonicalizationMethod")
	c14n.CreateAttr("Algorithm", algC14N)
	sm := signedInfo.CreateElement("ds:SignatureMethod")
	sm.CreateAttr("Algorithm", sigMethod)

	refDoc := signedInfo.CreateElement("ds:Reference")
	refDoc.CreateAttr("URI", "")
	transforms := refDoc.CreateElement("ds:Transforms")
	t1 := transforms.CreateElement("ds:Transform")
	t1.CreateAttr("Algorithm", algEnveloped)
	t2 := transforms.CreateElement("ds:Transform")
	t2.CreateAttr("Algorithm", algC14N)
	rdm := refDoc.CreateElement("ds:DigestMethod")
	rdm.CreateAttr("Algorithm", algDigestSHA256)
	refDoc.CreateElement("ds:DigestValue").SetText(docDigest)

	refProps := signedInfo.CreateElement("ds:Reference")
	refProps.CreateAttr("URI", "#"+signedPropsID)
	refProps.CreateAttr("Type", typeSignedProps)
	propsTransforms := refProps.CreateElement("ds:Transforms")
	pt := propsTransforms.CreateElement("ds:Transform")
	pt.CreateAttr("Algorithm", algC14N)
	pdm := refProps.CreateElement("ds:DigestMethod")
	pdm.CreateAttr("Algorithm", algDigestSHA256)
	refProps.CreateElement("ds:DigestValue").SetText(propsDigest)

	signedInfoBytes, err := serializeElement(signedInfo)
	if err != nil {
		return nil, errors.Wrap(err, "serialize SignedInfo")
	}
	signatureValue, err := cipher.Sign(signedInfoBytes, signer)
	if err != nil {
		return nil, err
	}

	// Złożenie ds:Signature jako rodzeństwa danych w korzeniu.
	signature := etree.NewElement("ds:Signature")
	signature.CreateAttr("xmlns:ds", nsDS)
	signature.CreateAttr("Id", signatureID)
	signature.AddChild(signedInfo)
	signature.CreateElement("ds:SignatureValue").SetText(base64.StdEncoding.EncodeToString(signatureValue))

	keyInfo := signature.CreateElement("ds:KeyInfo")
	x509Data := keyInfo.CreateElement("ds:X509Data")
	x509Data.CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(cert.Raw))

	object := signature.CreateElement("ds:Object")
	object.CreateAttr("xmlns:xades", nsXades)
	qp := object.CreateElement("xades:QualifyingProperties")
	qp.CreateAttr("Target", "#"+signatureID)
	qp.AddChild(signedProps)

	root.AddChild(signature)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.SetRoot(root)
	applyCanonicalSettings(doc)
	return doc.WriteToBytes()
}

func signatureMethod(signer crypto.Signer) (string, error) {
	switch signer.(type) {
	case *rsa.PrivateKey:
		return algRSAPSSSHA256, nil
	case *ecdsa.PrivateKey:
		return algECDSASHA256, nil
	default:
		return "", errors.Errorf("unsupported private key type %T", signer)
	}
}

// digestElement liczy SHA-256 z kanonicznej serializacji elementu i zwraca
// Base64. Serializacja naśladuje exclusive C14N w zakresie obsługiwanym
// przez etree (kanoniczne atrybuty, tekst i znaczniki końcowe).
func digestElement(el *etree.Element) (string, error) {
	b, err := serializeElement(el)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

func serializeElement(el *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	applyCanonicalSettings(doc)
	return doc.WriteToBytes()
}

func applyCanonicalSettings(doc *etree.Document) {
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
		CanonicalEndTags: true,
	}
}

func randomID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand nie zawodzi w praktyce; identyfikator musi być tylko unikalny
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
