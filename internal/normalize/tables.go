package normalize

import "github.com/antoninfaure/occupancy-scraper/internal/model"

// 内置映射表。运行时可通过 Maps.Extend 追加房间别名与排除项。

var defaultRoomAliases = map[string][]string{
	"CE1":            {"CE11"},
	"CE2":            {"CE12"},
	"CE3":            {"CE13"},
	"CE4":            {"CE14"},
	"CE5":            {"CE15"},
	"CE6":            {"CE16"},
	"CM1":            {"CM11"},
	"CM2":            {"CM12"},
	"CM3":            {"CM13"},
	"CM4":            {"CM14"},
	"CM5":            {"CM15"},
	"BC07-08":        {"BC07", "BC08"},
	"SG1":            {"SG1138"},
	"SG1 138":        {"SG1138"},
	"RLC E1 240":     {"RLCE1240"},
	"STCC - Cloud C": {"STCC78025"},
}

var defaultRoomExclusions = []string{
	"POL.N3.E",
	"POL315.1",
	"PHxx",
	"Max412",
	"STCC - Garden Full",
	"ELG124",
	"EXTRANEF126",
	"CHCIGC",
}

var defaultPromos = map[string]string{
	"Bachelor 1":    "BA1",
	"Bachelor 2":    "BA2",
	"Bachelor 3":    "BA3",
	"Bachelor 4":    "BA4",
	"Bachelor 5":    "BA5",
	"Bachelor 6":    "BA6",
	"Master 1":      "MA1",
	"Master 2":      "MA2",
	"Master 3":      "MA3",
	"Master 4":      "MA4",
	"PDM Printemps": "PME",
	"PDM Automne":   "PMH",
}

var defaultPromosLong = map[string]string{
	"Bachelor semestre 1":     "BA1",
	"Bachelor semestre 2":     "BA2",
	"Bachelor semestre 3":     "BA3",
	"Bachelor semestre 4":     "BA4",
	"Bachelor semestre 5":     "BA5",
	"Bachelor semestre 5b":    "BA5",
	"Bachelor semestre 6":     "BA6",
	"Bachelor semestre 6b":    "BA6",
	"Master semestre 1":       "MA1",
	"Master semestre 2":       "MA2",
	"Master semestre 3":       "MA3",
	"Master semestre 4":       "MA4",
	"PDM Automne":             "PMH",
	"PDM Printemps":           "PME",
	"Ecole doctorale":         "EDOC",
	"Admission printemps":     "ADME",
	"Admission automne":       "ADMH",
	"Semestre printemps":      "E",
	"Semestre automne":        "H",
	"Projet Master printemps": "PME",
	"Projet Master automne":   "PMH",
}

var defaultSections = map[string]string{
	"Génie mécanique":                                     "GM",
	"Mécanique":                                           "GM",
	"Mineur en Génie mécanique":                           "GM",
	"Architecture":                                        "AR",
	"Mineur en Design intégré architecture et durabilité": "AR",
	"Chimie et génie chimique":                            "CGC",
	"Génie civil":                                         "GC",
	"Génie électrique et électronique":                    "EL",
	"Génie électrique":                                    "EL",
	"Mineur en Energie":                                   "EL",
	"Informatique":                                        "IN",
	"Informatique et communications":                      "IN",
	"Mineur en Informatique":                              "IN",
	"Data and Internet of Things minor":                   "SC",
	"Cyber security minor":                                "SC",
	"Mineur en Science et ingénierie quantiques":          "SIQ",
	"Mineur en Imaging":                                   "MT",
	"Ingénierie des sciences du vivant":                   "SV",
	"Mathématiques":                                       "MA",
	"Microtechnique":                                      "MT",
	"Physique":                                            "PH",
	"Auditeurs en ligne":                                  "AUDIT",
	"Science et génie des matériaux":                      "MX",
	"Sciences et ingénierie de l'environnement":           "SIE",
	"Systèmes de communication":                           "SC",
	"Chimie":                                              "CGC",
	"Mineur en Ingénierie pour la durabilité":             "SIE",
	"Génie chimique":                                      "CGC",
	"Chimie moléculaire et biologique":                    "CGC",
	"Humanités digitales":                                 "HD",
	"Data Science":                                        "SC",
	"Energy Science and Technology":                       "EL",
	"Management, technologie et entrepreneuriat":          "MTE",
	"Management technologie et entrepreneuriat":           "MTE",
	"Management de la technologie":                        "MTE",
	"Mineur en Management technologie et entrepreneuriat": "MTE",
	"Mineur en Systems Engineering":                       "MTE",
	"Génie chimique et biotechnologie":                    "CGC",
	"Génie nucléaire":                                     "PH",
	"Informatique - Cybersecurity":                        "IN",
	"Ingénierie financière":                               "IF",
	"Mineur en Ingénierie financière":                     "IF",
	"Ingénierie physique":                                 "PH",
	"Physique - master":                                   "PH",
	"Management durable et technologie":                   "MTE",
	"Mathématiques - master":                              "MA",
	"Statistique":                                         "MA",
	"Neuro-X":                                             "NX",
	"Neurosciences":                                       "NX",
	"Passerelle HES - CGC":                                "CGC",
	"Passerelle HES - EL":                                 "EL",
	"Passerelle HES - SIE":                                "SIE",
	"Passerelle HES - MT":                                 "MT",
	"Passerelle HES - AR":                                 "AR",
	"Passerelle HES - GC":                                 "GC",
	"Passerelle HES - GM":                                 "GM",
	"Passerelle HES - IC":                                 "IN",
	"Projeter ensemble ENAC":                              "AR",
	"Microsystèmes et microélectronique":                  "MT",
	"Mineur en Neuroprosthétiques":                        "NX",
	"Manufacturing":                                       "GM",
	"Finance":                                             "IF",
	"Approches moléculaires du vivant":                    "SV",
	"Mineur en Computational biology":                     "SV",
	"Mineur en Physique des systèmes vivants":             "SV",
	"Biologie computationnelle et quantitative":           "SV",
	"Biotechnologie et génie biologique":                  "SV",
	"Mineur en Neurosciences computationnelles":           "NX",
	"Ingénierie mathématique":                             "MA",
	"Micro- and Nanotechnologies for Integrated Systems":  "EL",
	"Robotique":                                           "MT",
	"Science et ingénierie computationnelles":             "MA",
	"Science et ingénierie quantiques":                    "SIQ",
	"Systèmes de communication - master":                  "SC",
	"Programme Sciences humaines et sociales":             "SHS",
	"Mineur en Technologies biomédicales":                 "SV",
	"Mineur en Neuro-X":                                   "NX",
	"Robotique contrôle et systèmes intelligents":         "MT",
	"UNIL - Collège des sciences":                         "UNIL",
	"Mineur en Science et ingénierie computationnelles":   "MA",
	"Mineur en Systèmes de communication":                 "SC",
	"Mineur en Développement territorial et urbanisme":    "AR",
	"Mineur en Territoires en transformation et climat":   "SIE",
	"Mobilité AR":                                         "AR",
	"Photonique":                                          "MT",
	"Photonics minor":                                     "MT",
	"UNIL - Autres facultés":                              "UNIL",
	"UNIL - HEC":                                          "UNIL",
	"UNIL - Géosciences":                                  "UNIL",
	"UNIL - Sciences forensiques":                         "UNIL",
	"Science et technologie de l'énergie":                 "EL",
	"Mineur en Technologies spatiales":                    "EL",
	"Génie civil et environnement":                        "GC",
	"Mineur en Data science":                              "SC",
	"Mineur en Humanités digitales médias et société":     "HD",
	"Mineur en Génie civil":                               "GC",
	"Joint EPFL - ETH Zurich Doctoral Program in the Learning Sciences": "ETH",
	"Mineur en Biotechnologie":                    "SV",
	"Cours généraux et externes EDOC":             "EDOC",
	"Mineur en Biocomputing":                      "SV",
	"Mineur en Ingénierie des Sciences du Vivant": "SV",
	"Architecture et sciences de la ville":        "AR",
	"Energie":                                     "EL",
}

var defaultSemesterTypes = map[string]model.SemesterType{
	"BA1": model.SemesterFall,
	"BA2": model.SemesterSpring,
	"BA3": model.SemesterFall,
	"BA4": model.SemesterSpring,
	"BA5": model.SemesterFall,
	"BA6": model.SemesterSpring,
	"MA1": model.SemesterFall,
	"MA2": model.SemesterSpring,
	"MA3": model.SemesterFall,
	"MA4": model.SemesterSpring,
	"PMH": model.SemesterFall,
	"PME": model.SemesterSpring,
}

var defaultSemesterTypesLong = map[string]model.SemesterType{
	"Bachelor semestre 1":     model.SemesterFall,
	"Bachelor semestre 2":     model.SemesterSpring,
	"Bachelor semestre 3":     model.SemesterFall,
	"Bachelor semestre 4":     model.SemesterSpring,
	"Bachelor semestre 5":     model.SemesterFall,
	"Bachelor semestre 5b":    model.SemesterFall,
	"Bachelor semestre 6":     model.SemesterSpring,
	"Bachelor semestre 6b":    model.SemesterSpring,
	"Master semestre 1":       model.SemesterFall,
	"Master semestre 2":       model.SemesterSpring,
	"Master semestre 3":       model.SemesterFall,
	"Master semestre 4":       model.SemesterSpring,
	"PDM Automne":             model.SemesterFall,
	"Projet Master automne":   model.SemesterFall,
	"PDM Printemps":           model.SemesterSpring,
	"Projet Master printemps": model.SemesterSpring,
	"Ecole doctorale":         model.SemesterYear,
	"Admission printemps":     model.SemesterSpring,
	"Admission automne":       model.SemesterFall,
	"Semestre printemps":      model.SemesterSpring,
	"Semestre automne":        model.SemesterFall,
	"Joint EPFL - ETH Zurich Doctoral Program in the Learning Sciences": model.SemesterYear,
	"Cours généraux et externes EDOC":                                   model.SemesterYear,
}

var defaultLabels = map[string]string{
	"L":             model.LabelCours,
	"Cours":         model.LabelCours,
	"E":             model.LabelExercice,
	"Exercice, TP":  model.LabelExercice,
	"P":             model.LabelProjet,
	"Projet, autre": model.LabelProjet,
}

var defaultWeekdays = map[string]int{
	"Lundi":    0,
	"Mardi":    1,
	"Mercredi": 2,
	"Jeudi":    3,
	"Vendredi": 4,
	"Samedi":   5,
	"Dimanche": 6,
}
