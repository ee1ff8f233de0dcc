package domain

import "fmt"

// Family identifies an entity family that shares the versioning and publishing engine.
// Every family is persisted in its own root, version and language availability tables.
type Family string

const (
	FamilyService            Family = "service"
	FamilyServiceChannel     Family = "service_channel"
	FamilyOrganization       Family = "organization"
	FamilyGeneralDescription Family = "general_description"
	FamilyServiceCollection  Family = "service_collection"
)

// Families lists every family known to the engine, in migration order.
var Families = []Family{
	FamilyOrganization,
	FamilyGeneralDescription,
	FamilyService,
	FamilyServiceChannel,
	FamilyServiceCollection,
}

// ParseFamily converts a family tag into a Family.
func ParseFamily(tag string) (Family, error) {
	for _, f := range Families {
		if string(f) == tag {
			return f, nil
		}
	}

	return "", fmt.Errorf("unknown entity family: %q", tag)
}

func (f Family) String() string {
	return string(f)
}

func (f Family) RootTable() string {
	return string(f) + "_roots"
}

func (f Family) VersionTable() string {
	return string(f) + "_versions"
}

func (f Family) LanguageTable() string {
	return string(f) + "_language_availabilities"
}
